// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/eprom-ui/internal/app"
)

// Topic is the MQTT topic for UI events.
const Topic = "eprom/ui/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "eprom/ui/system"

// UI events are fire-and-forget; lifecycle events are delivered at least once.
const (
	qosEvents byte = 0
	qosSystem byte = 1
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a UI event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event app.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	UI UIPayload `json:"ui"`
}

// UIPayload contains the UI event details.
type UIPayload struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	Path      string `json:"path,omitempty"`
	Position  int    `json:"position"`
	Bytes     int    `json:"bytes,omitempty"`
}

// FormatPayload creates the JSON payload for a UI event.
func FormatPayload(event app.Event) ([]byte, error) {
	payload := Payload{
		UI: UIPayload{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Mode:      string(event.Mode),
			Path:      event.Path,
			Position:  event.Position,
			Bytes:     event.Bytes,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
