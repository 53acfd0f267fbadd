// Package status provides a thread-safe view of the UI state for the HTTP
// status page and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/eprom-ui/internal/app"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	CardRoot    string
	Capacity    int
}

// UI is the controller and knob state copied in by the run loop.
type UI struct {
	Mode      app.Mode
	Directory string
	Selected  string
	Image     string
	LoadError string
	Position  int
	Button    bool
	Counts    app.Counts
}

// Snapshot is a point-in-time view of daemon state.
type Snapshot struct {
	UI
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			UI:        UI{Mode: app.ModeProgram},
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the UI state. Called from runLoop after every poll.
func (t *Tracker) Update(ui UI) {
	t.mu.Lock()
	t.snap.UI = ui
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a copy of the daemon state with Now set to the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
