package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Mode          string     `json:"mode"`
	Directory     string     `json:"directory"`
	Selected      string     `json:"selected"`
	Image         string     `json:"image,omitempty"`
	LoadError     string     `json:"load_error,omitempty"`
	Position      int        `json:"position"`
	Button        string     `json:"button"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	StepsCW    int `json:"steps_cw"`
	StepsCCW   int `json:"steps_ccw"`
	Presses    int `json:"presses"`
	Loads      int `json:"loads"`
	LoadErrors int `json:"load_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	CardRoot    string `json:"card_root"`
	Capacity    int    `json:"capacity"`
}

// buttonName reports the debounced level; the button pulls low when pressed.
func buttonName(level bool) string {
	if level {
		return "RELEASED"
	}
	return "PRESSED"
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	return StatusInner{
		Mode:          mode,
		Directory:     snap.Directory,
		Selected:      snap.Selected,
		Image:         snap.Image,
		LoadError:     snap.LoadError,
		Position:      snap.Position,
		Button:        buttonName(snap.Button),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			StepsCW:    snap.Counts.StepsCW,
			StepsCCW:   snap.Counts.StepsCCW,
			Presses:    snap.Counts.Presses,
			Loads:      snap.Counts.Loads,
			LoadErrors: snap.Counts.LoadErrors,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			CardRoot:    snap.Config.CardRoot,
			Capacity:    snap.Config.Capacity,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
