package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"path"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/sweeney/eprom-ui/internal/browser"
	"github.com/sweeney/eprom-ui/internal/display"
	"github.com/sweeney/eprom-ui/internal/emulator"
	"github.com/sweeney/eprom-ui/internal/input"
)

// Controller owns the browser, the emulator and the display, and is the only
// consumer of input events. It is not safe for concurrent use.
type Controller struct {
	fsys    fs.FS
	browser *browser.Browser
	emu     *emulator.Emulator
	disp    display.Display

	mode    Mode
	image   string
	counts  Counts
	loadErr string

	startTime     time.Time
	lastHeartbeat time.Time
	entropy       io.Reader
}

// NewController creates a controller in programmer mode.
// fsys must be the tree the browser was created from.
func NewController(fsys fs.FS, b *browser.Browser, emu *emulator.Emulator, disp display.Display, startTime time.Time) *Controller {
	return &Controller{
		fsys:          fsys,
		browser:       b,
		emu:           emu,
		disp:          disp,
		mode:          ModeProgram,
		startTime:     startTime,
		lastHeartbeat: startTime,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(startTime.UnixNano())), 0),
	}
}

// Start puts the board in programmer mode and draws the root listing.
func (c *Controller) Start() error {
	if err := c.emu.EnterProgrammerMode(); err != nil {
		return fmt.Errorf("enter programmer mode: %w", err)
	}
	return c.browser.Render(c.disp)
}

// Handle applies one poll's worth of input and returns the resulting events.
// On error the events produced before the failure are still returned.
func (c *Controller) Handle(ctx context.Context, ev input.Event) ([]Event, error) {
	var events []Event

	if ev.Step != 0 && c.mode == ModeProgram {
		e, ok, err := c.move(ev)
		if err != nil {
			return events, err
		}
		if ok {
			events = append(events, e)
		}
	}

	if ev.Fell {
		c.counts.Presses++
		e, ok, err := c.press(ctx, ev)
		if err != nil {
			return events, err
		}
		if ok {
			events = append(events, e)
		}
	}

	return events, nil
}

func (c *Controller) move(ev input.Event) (Event, bool, error) {
	var moved bool
	if ev.Step > 0 {
		c.counts.StepsCW++
		moved = c.browser.Down()
	} else {
		c.counts.StepsCCW++
		moved = c.browser.Up()
	}
	if !moved {
		return Event{}, false, nil
	}

	c.loadErr = ""
	if err := c.browser.Render(c.disp); err != nil {
		return Event{}, false, fmt.Errorf("render listing: %w", err)
	}
	return c.event(ev, EventSelect, c.browser.SelectedPath()), true, nil
}

func (c *Controller) press(ctx context.Context, ev input.Event) (Event, bool, error) {
	if c.mode == ModeICE {
		if err := c.emu.EnterProgrammerMode(); err != nil {
			return Event{}, false, fmt.Errorf("enter programmer mode: %w", err)
		}
		c.mode = ModeProgram
		if err := c.browser.Render(c.disp); err != nil {
			return Event{}, false, fmt.Errorf("render listing: %w", err)
		}
		return c.event(ev, EventProgram, c.image), true, nil
	}

	if browser.IsBinaryName(c.browser.Selected()) {
		return c.emulate(ctx, ev)
	}

	changed, err := c.browser.Click()
	if err != nil {
		return Event{}, false, fmt.Errorf("open %s: %w", c.browser.SelectedPath(), err)
	}
	if !changed {
		return Event{}, false, nil
	}
	if err := c.browser.Render(c.disp); err != nil {
		return Event{}, false, fmt.Errorf("render listing: %w", err)
	}
	return c.event(ev, EventEnterDir, c.browser.Path()), true, nil
}

func (c *Controller) emulate(ctx context.Context, ev input.Event) (Event, bool, error) {
	p := c.browser.SelectedPath()

	data, err := fs.ReadFile(c.fsys, p)
	if err == nil {
		err = c.emu.LoadRAM(ctx, data)
	}
	if err == nil {
		err = c.emu.EnterICEMode()
	}
	if err != nil {
		c.counts.LoadErrors++
		c.loadErr = err.Error()
		loadErr := fmt.Errorf("load %s: %w", p, err)
		if err := c.showMessage("Load failed", path.Base(p)); err != nil {
			return Event{}, false, errors.Join(loadErr, fmt.Errorf("render load failure: %w", err))
		}
		return Event{}, false, loadErr
	}

	c.counts.Loads++
	c.loadErr = ""
	c.mode = ModeICE
	c.image = p
	if err := c.showMessage("Emulating", path.Base(p)); err != nil {
		return Event{}, false, fmt.Errorf("render emulating: %w", err)
	}

	e := c.event(ev, EventEmulate, p)
	e.Bytes = len(data)
	return e, true, nil
}

func (c *Controller) showMessage(title, name string) error {
	c.disp.Clear()
	c.disp.Text(0, title)
	c.disp.Text(1, name)
	return c.disp.Show()
}

func (c *Controller) event(ev input.Event, t EventType, p string) Event {
	return Event{
		ID:        c.newID(ev.Time),
		Timestamp: ev.Time,
		Type:      t,
		Mode:      c.mode,
		Path:      p,
		Position:  ev.Position,
	}
}

// newID returns a ULID for t, or "" if t is outside the ULID range.
func (c *Controller) newID(t time.Time) string {
	id, err := ulid.New(ulid.Timestamp(t), c.entropy)
	if err != nil {
		return ""
	}
	return id.String()
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Image returns the path of the image most recently loaded, or "".
func (c *Controller) Image() string {
	return c.image
}

// Directory returns the display path of the directory being browsed.
func (c *Controller) Directory() string {
	return c.browser.Path()
}

// Selected returns the fs path of the selected entry.
func (c *Controller) Selected() string {
	return c.browser.SelectedPath()
}

// LastLoadError returns the message of the most recent failed load, cleared
// by the next successful load or selection change.
func (c *Controller) LastLoadError() string {
	return c.loadErr
}

// CountsSnapshot returns a copy of the activity counters.
func (c *Controller) CountsSnapshot() Counts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
