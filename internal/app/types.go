// Package app maps knob events onto the file browser and the emulator.
package app

import "time"

// Mode is the emulator board's operating mode.
type Mode string

const (
	// ModeProgram: the host owns the RAM and the knob browses images.
	ModeProgram Mode = "PROGRAM"
	// ModeICE: the target owns the RAM; rotation is ignored.
	ModeICE Mode = "ICE"
)

// EventType identifies a user-visible change made by the controller.
type EventType string

const (
	EventSelect   EventType = "SELECT"
	EventEnterDir EventType = "ENTER_DIR"
	EventEmulate  EventType = "EMULATE"
	EventProgram  EventType = "PROGRAM"
)

// Event is a change to be published.
type Event struct {
	ID        string // ULID, sortable by Timestamp
	Timestamp time.Time
	Type      EventType
	Mode      Mode
	// Path is the selected entry for SELECT, the directory for ENTER_DIR,
	// and the loaded image for EMULATE and PROGRAM.
	Path     string
	Position int
	Bytes    int // image size, EMULATE only
}

// Counts tracks user activity since startup.
type Counts struct {
	StepsCW    int
	StepsCCW   int
	Presses    int
	Loads      int
	LoadErrors int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
