//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the knob from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	a      *gpiocdev.Line
	b      *gpiocdev.Line
}

// NewRealReader requests the button and encoder lines on the given chip.
func NewRealReader(chipName string, pins Pins) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealReader{chip: chip}

	// The knob switches short to ground, so every line needs a pull-up.
	r.button, err = chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}

	r.a, err = chip.RequestLine(pins.A, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request encoder A pin %d: %w", pins.A, err)
	}

	r.b, err = chip.RequestLine(pins.B, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request encoder B pin %d: %w", pins.B, err)
	}

	return r, nil
}

// Read returns the raw levels of the button and both encoder channels.
func (r *RealReader) Read() (Levels, error) {
	button, err := r.button.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read button pin: %w", err)
	}

	a, err := r.a.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read encoder A pin: %w", err)
	}

	b, err := r.b.Value()
	if err != nil {
		return Levels{}, fmt.Errorf("read encoder B pin: %w", err)
	}

	return Levels{Button: button != 0, A: a != 0, B: b != 0}, nil
}

// Close releases GPIO resources.
// Lines are reconfigured as plain inputs with pull-down (Pi boot defaults)
// before they are released.
func (r *RealReader) Close() error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{
		{"button", r.button},
		{"encoder A", r.a},
		{"encoder B", r.b},
	}
	for _, l := range lines {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
