// Command eprom-ui runs the knob-driven front panel of the EPROM emulator:
// it browses the SD card, loads images into the emulator RAM and publishes
// UI events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/sweeney/eprom-ui/internal/app"
	"github.com/sweeney/eprom-ui/internal/browser"
	"github.com/sweeney/eprom-ui/internal/config"
	"github.com/sweeney/eprom-ui/internal/display"
	"github.com/sweeney/eprom-ui/internal/emulator"
	"github.com/sweeney/eprom-ui/internal/gpio"
	"github.com/sweeney/eprom-ui/internal/input"
	"github.com/sweeney/eprom-ui/internal/mqtt"
	"github.com/sweeney/eprom-ui/internal/status"
	"github.com/sweeney/eprom-ui/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/eprom-ui.yaml", "Path to YAML config file")
	poll := flag.Duration("poll", 0, "GPIO polling interval (overrides config)")
	debounce := flag.Duration("debounce", 0, "Button debounce interval (overrides config)")
	printState := flag.Bool("print-state", false, "Print current pin levels and exit")

	flag.Parse()

	log := logrus.New()

	cfg, err := loadConfig(*configPath, *poll, *debounce)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	level, _ := logrus.ParseLevel(cfg.Logger.Level)
	log.SetLevel(level)

	if err := run(cfg, *printState, log); err != nil {
		log.WithError(err).Fatal("fatal")
	}
}

// loadConfig reads the config file and applies non-zero flag overrides.
func loadConfig(path string, poll, debounce time.Duration) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if poll > 0 {
		cfg.Input.Poll = poll
	}
	if debounce > 0 {
		cfg.Input.Debounce = debounce
	}
	return cfg, cfg.Validate()
}

func run(cfg config.Config, printState bool, log *logrus.Logger) error {
	reader, err := gpio.NewRealReader(cfg.Input.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		levels, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatLevels(levels))
		return nil
	}

	exp, err := openExpander(cfg.Emulator)
	if err != nil {
		return fmt.Errorf("init expander: %w", err)
	}
	emu, err := emulator.New(exp, cfg.Emulator.Capacity)
	if err != nil {
		return err
	}
	defer emu.Close()

	card := os.DirFS(cfg.Card.Root)
	b, err := browser.New(card, cfg.Card.Label)
	if err != nil {
		return fmt.Errorf("open card %s: %w", cfg.Card.Root, err)
	}

	startTime := time.Now()
	ctrl := app.NewController(card, b, emu, display.NewLogDisplay(log.WithField("component", "display")), startTime)
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	poller, err := input.NewPoller(reader, cfg.Input.Debounce, time.Now)
	if err != nil {
		return fmt.Errorf("init poller: %w", err)
	}

	publisher, mqttStatus, err := openPublisher(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:      cfg.Input.Poll.Milliseconds(),
		DebounceMs:  cfg.Input.Debounce.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		CardRoot:    cfg.Card.Root,
		Capacity:    emu.Capacity(),
	})
	updateTracker(tracker, ctrl, poller, mqttStatus)

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, log.WithField("component", "http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	var limiter *rate.Limiter
	if cfg.MQTT.SelectRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MQTT.SelectRate), 1)
	}

	log.WithFields(logrus.Fields{
		"poll":      cfg.Input.Poll,
		"debounce":  cfg.Input.Debounce,
		"card":      cfg.Card.Root,
		"broker":    cfg.MQTT.Broker,
		"heartbeat": cfg.MQTT.Heartbeat,
	}).Info("started")

	ticker := time.NewTicker(cfg.Input.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		poller:     poller,
		ctrl:       ctrl,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		limiter:    limiter,
		heartbeat:  cfg.MQTT.Heartbeat,
		now:        time.Now,
		log:        log,
	}
	return l.run(ticker.C, sigCh)
}

func openExpander(cfg config.EmulatorConfig) (emulator.Expander, error) {
	if cfg.Headless {
		return emulator.Discard, nil
	}
	return emulator.OpenMCP23017(cfg.I2CBus, cfg.Address)
}

// openPublisher returns a broker-backed publisher, or a discarding one when
// no broker is configured.
func openPublisher(cfg config.MQTTConfig, log logrus.FieldLogger) (mqtt.Publisher, mqtt.ConnectionStatus, error) {
	if cfg.Broker == "" {
		log.Info("mqtt disabled")
		return mqtt.Discard{}, mqtt.Discard{}, nil
	}
	p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, log.WithField("component", "mqtt"))
	if err != nil {
		return nil, nil, err
	}
	return p, p, nil
}

// loop owns every component touched per tick. Only run's goroutine uses it.
type loop struct {
	poller     *input.Poller
	ctrl       *app.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	limiter    *rate.Limiter // nil: publish every SELECT
	heartbeat  time.Duration
	now        func() time.Time
	log        logrus.FieldLogger
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx := context.Background()

	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case <-tick:
			// A failed read still carries its poll time, so heartbeats keep
			// flowing while the pins are faulty.
			ev, err := l.poller.Poll()
			if err != nil {
				l.log.WithError(err).Warn("gpio read error")
			} else if !ev.Idle() {
				events, err := l.ctrl.Handle(ctx, ev)
				if err != nil {
					l.log.WithError(err).Warn("input handling failed")
				}
				for _, e := range events {
					l.publish(e)
				}
			}

			if hb := l.ctrl.CheckHeartbeat(ev.Time, l.heartbeat); hb != nil {
				l.log.WithFields(logrus.Fields{
					"uptime":  hb.Uptime,
					"presses": hb.Counts.Presses,
					"loads":   hb.Counts.Loads,
				}).Info("heartbeat")

				updateTracker(l.tracker, l.ctrl, l.poller, l.mqttStatus)
				snap := l.tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					l.log.WithError(err).Warn("heartbeat publish error")
				}
			}

			updateTracker(l.tracker, l.ctrl, l.poller, l.mqttStatus)
		}
	}
}

func (l *loop) publish(e app.Event) {
	fields := logrus.Fields{"event": e.Type, "mode": e.Mode, "path": e.Path}
	if e.Type == app.EventSelect && l.limiter != nil && !l.limiter.AllowN(e.Timestamp, 1) {
		l.log.WithFields(fields).Debug("select throttled")
		return
	}

	l.log.WithFields(fields).Info("ui event")
	if err := l.publisher.Publish(e); err != nil {
		// Don't stop the knob on a broker failure
		l.log.WithError(err).Warn("publish error")
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.WithField("signal", s).Info("shutting down")

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	updateTracker(l.tracker, l.ctrl, l.poller, l.mqttStatus)
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.WithError(err).Warn("failed to publish shutdown event")
	} else {
		l.log.Info("published shutdown event")
	}
}

// updateTracker copies controller and knob state for HTTP readers.
func updateTracker(tracker *status.Tracker, ctrl *app.Controller, poller *input.Poller, mqttStatus mqtt.ConnectionStatus) {
	tracker.Update(status.UI{
		Mode:      ctrl.Mode(),
		Directory: ctrl.Directory(),
		Selected:  ctrl.Selected(),
		Image:     ctrl.Image(),
		LoadError: ctrl.LastLoadError(),
		Position:  poller.Position(),
		Button:    poller.Button(),
		Counts:    ctrl.CountsSnapshot(),
	})
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
}

func formatLevels(l gpio.Levels) string {
	button := "RELEASED"
	if !l.Button {
		button = "PRESSED"
	}
	return fmt.Sprintf("button: %s, A: %s, B: %s", button, levelString(l.A), levelString(l.B))
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}
