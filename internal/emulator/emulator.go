// Package emulator drives the EPROM emulator board: a static RAM that is
// either loaded from the host (programmer mode) or mapped onto the target's
// EPROM socket (ICE mode).
//
// All control lines and the data bus sit on one 16-bit output expander.
package emulator

import (
	"context"
	"errors"
	"fmt"
)

// Expander is a 16-bit output latch.
type Expander interface {
	// Write sets all 16 outputs at once.
	Write(v uint16) error
	Close() error
}

// Discard is an Expander for boards without a latch fitted.
var Discard Expander = discard{}

type discard struct{}

func (discard) Write(uint16) error { return nil }
func (discard) Close() error       { return nil }

// Output bit assignments. Bits 0-7 carry the data bus.
const (
	BitMode   = 8  // low: programmer owns the RAM, high: target owns it
	BitWrite  = 9  // active low
	BitSelect = 10 // active low
	BitClock  = 11 // address counter clock, active low
	BitReset  = 12 // address counter reset, active high
	BitLED    = 13 // high: emulating

	dataMask uint16 = 0x00FF
)

// idle is the output state at power-up: programmer mode, every strobe inactive.
const idle uint16 = 1<<BitWrite | 1<<BitSelect | 1<<BitClock

// DefaultCapacity is the size of the emulated RAM (27C512).
const DefaultCapacity = 64 * 1024

// ErrImageTooLarge is returned when an image does not fit the RAM.
var ErrImageTooLarge = errors.New("image larger than emulated RAM")

// Emulator sequences the control lines. It is not safe for concurrent use.
type Emulator struct {
	exp      Expander
	capacity int
	out      uint16
	ice      bool
	loaded   int
}

// New drives every line to its idle level. A capacity <= 0 selects DefaultCapacity.
func New(exp Expander, capacity int) (*Emulator, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	e := &Emulator{exp: exp, capacity: capacity, out: idle}
	if err := exp.Write(e.out); err != nil {
		return nil, fmt.Errorf("init expander: %w", err)
	}
	return e, nil
}

func (e *Emulator) set(bit uint, high bool) error {
	if high {
		e.out |= 1 << bit
	} else {
		e.out &^= 1 << bit
	}
	return e.exp.Write(e.out)
}

// pulse drives bit to its active level and back.
func (e *Emulator) pulse(bit uint, activeHigh bool) error {
	if err := e.set(bit, activeHigh); err != nil {
		return err
	}
	return e.set(bit, !activeHigh)
}

// EnterProgrammerMode hands the RAM to the host and turns the LED off.
func (e *Emulator) EnterProgrammerMode() error {
	if err := e.set(BitMode, false); err != nil {
		return fmt.Errorf("mode line: %w", err)
	}
	if err := e.set(BitLED, false); err != nil {
		return fmt.Errorf("led line: %w", err)
	}
	e.ice = false
	return nil
}

// EnterICEMode hands the RAM to the target and turns the LED on.
func (e *Emulator) EnterICEMode() error {
	if err := e.set(BitMode, true); err != nil {
		return fmt.Errorf("mode line: %w", err)
	}
	if err := e.set(BitLED, true); err != nil {
		return fmt.Errorf("led line: %w", err)
	}
	e.ice = true
	return nil
}

// LoadRAM switches to programmer mode and writes data from address 0.
// Cancelling ctx stops between bytes; the RAM is then partially written.
func (e *Emulator) LoadRAM(ctx context.Context, data []byte) error {
	if len(data) > e.capacity {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrImageTooLarge, len(data), e.capacity)
	}

	if err := e.EnterProgrammerMode(); err != nil {
		return err
	}
	if err := e.pulse(BitReset, true); err != nil {
		return fmt.Errorf("reset address counter: %w", err)
	}

	e.loaded = 0
	for i, b := range data {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load stopped at byte %d: %w", i, err)
		}
		if err := e.writeByte(b); err != nil {
			return fmt.Errorf("write byte %d: %w", i, err)
		}
		e.loaded++
	}
	return nil
}

// writeByte stores one byte at the current address and advances the counter.
func (e *Emulator) writeByte(b byte) error {
	e.out = e.out&^dataMask | uint16(b)
	if err := e.exp.Write(e.out); err != nil {
		return err
	}
	if err := e.set(BitSelect, false); err != nil {
		return err
	}
	if err := e.pulse(BitWrite, false); err != nil {
		return err
	}
	if err := e.set(BitSelect, true); err != nil {
		return err
	}
	return e.pulse(BitClock, false)
}

// ICE reports whether the target currently owns the RAM.
func (e *Emulator) ICE() bool {
	return e.ice
}

// Loaded returns the number of bytes written by the last LoadRAM.
func (e *Emulator) Loaded() int {
	return e.loaded
}

// Capacity returns the emulated RAM size in bytes.
func (e *Emulator) Capacity() int {
	return e.capacity
}

// Close releases the expander. The lines keep their last levels.
func (e *Emulator) Close() error {
	return e.exp.Close()
}
