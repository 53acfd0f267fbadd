package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/sweeney/eprom-ui/internal/app"
)

// bufferCapacity bounds the messages held while the broker is unreachable.
const bufferCapacity = 256

// Publish circuit breaker settings.
const (
	breakerMaxFailures uint32 = 3
	breakerTimeout            = 30 * time.Second
)

// newBreaker trips after consecutive publish failures so a half-dead broker
// connection does not stall the poll loop on every event.
func newBreaker(log logrus.FieldLogger) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mqtt",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("mqtt: circuit breaker state change")
		},
	})
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected, or while the breaker is open, are
// buffered and replayed oldest first ahead of any newer message.
type RealPublisher struct {
	client  paho.Client
	log     logrus.FieldLogger
	breaker *gobreaker.CircuitBreaker[struct{}]

	// sendMu serializes publish and replay so held messages keep their order.
	sendMu sync.Mutex

	mu  sync.Mutex
	buf *ringBuffer
}

func newPublisher(log logrus.FieldLogger) *RealPublisher {
	return &RealPublisher{
		log:     log,
		buf:     newRingBuffer(bufferCapacity, log),
		breaker: newBreaker(log),
	}
}

// NewRealPublisher creates a publisher for the given broker. The broker does
// not have to be reachable yet; the client keeps retrying in the background.
func NewRealPublisher(broker, clientID string, log logrus.FieldLogger) (*RealPublisher, error) {
	p := newPublisher(log.WithField("broker", broker))

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), qosSystem, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.WithError(err).Warn("mqtt: connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warn("mqtt: broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays anything buffered while the connection was down.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info("mqtt: connected")
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	p.replay()
}

// replay sends buffered messages oldest first through the breaker. It stops
// at the first failure and puts that message and the rest back in front of
// the buffer. Callers hold sendMu.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	p.log.WithField("replay", len(pending)).Info("mqtt: replaying buffered messages")

	for i, msg := range pending {
		if err := p.execute(msg); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{
				"topic": msg.topic,
				"held":  len(pending) - i,
			}).Warn("mqtt: replay interrupted")
			p.requeue(pending[i:])
			return
		}
	}
}

// requeue puts msgs back ahead of anything held since they were drained.
func (p *RealPublisher) requeue(msgs []bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	newer := p.buf.drainAll()
	for _, m := range msgs {
		p.buf.push(m)
	}
	for _, m := range newer {
		p.buf.push(m)
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

func (p *RealPublisher) execute(msg bufferedMsg) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.send(msg)
	})
	return err
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	if !p.client.IsConnected() {
		p.hold(msg)
		return nil
	}

	// Older held messages go out first.
	if p.held() > 0 {
		p.hold(msg)
		p.replay()
		return nil
	}

	err := p.execute(msg)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.hold(msg)
		return nil
	}
	return err
}

// hold buffers msg for replay on the next connect or successful send.
func (p *RealPublisher) hold(msg bufferedMsg) {
	p.mu.Lock()
	p.buf.push(msg)
	p.mu.Unlock()
}

func (p *RealPublisher) held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Publish sends a UI event to the MQTT broker.
func (p *RealPublisher) Publish(event app.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	if err := p.publish(bufferedMsg{topic: Topic, qos: qosEvents, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: qosSystem, retained: event.Retained}
	if err := p.publish(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
