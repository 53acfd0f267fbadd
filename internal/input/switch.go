// Package input turns raw knob pin levels into discrete events.
// The decoders in this package have NO external dependencies (no GPIO, OS,
// or time.Sleep). Time is always injectable via time.Time parameters.
package input

import "time"

// DefaultDebounce is the settle time used when none is configured.
const DefaultDebounce = 10 * time.Millisecond

// Switch debounces a single digital input.
//
// A raw level must be held continuously for the debounce interval before it
// becomes the stable level. Any raw change restarts the timer.
type Switch struct {
	interval      time.Duration
	stable        bool
	provisional   bool
	unstableSince time.Time
	changed       bool
}

// NewSwitch creates a debounced switch whose stable level starts at initial.
// An interval <= 0 selects DefaultDebounce.
func NewSwitch(initial bool, interval time.Duration, now time.Time) *Switch {
	if interval <= 0 {
		interval = DefaultDebounce
	}
	return &Switch{
		interval:      interval,
		stable:        initial,
		provisional:   initial,
		unstableSince: now,
	}
}

// Update feeds one raw sample taken at now.
// The stable level changes at most once per call.
func (s *Switch) Update(raw bool, now time.Time) {
	s.changed = false

	if raw != s.provisional {
		s.provisional = raw
		s.unstableSince = now
		return
	}

	if raw == s.stable {
		return
	}

	// A clock that steps backwards yields a negative duration, which never settles.
	if now.Sub(s.unstableSince) >= s.interval {
		s.stable = raw
		s.changed = true
	}
}

// Value returns the debounced level.
func (s *Switch) Value() bool {
	return s.stable
}

// Rose reports whether the last Update committed a change to high.
func (s *Switch) Rose() bool {
	return s.changed && s.stable
}

// Fell reports whether the last Update committed a change to low.
func (s *Switch) Fell() bool {
	return s.changed && !s.stable
}

// Interval returns the debounce interval in effect.
func (s *Switch) Interval() time.Duration {
	return s.interval
}
