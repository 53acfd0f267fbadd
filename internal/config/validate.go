package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate reports every problem found in c.
func (c Config) Validate() error {
	var errs []error

	if c.Input.Poll <= 0 {
		errs = append(errs, fmt.Errorf("input.poll must be positive, got %v", c.Input.Poll))
	}
	if c.Input.Debounce < 0 {
		errs = append(errs, fmt.Errorf("input.debounce must not be negative, got %v", c.Input.Debounce))
	}
	// Polling slower than the debounce interval cannot observe every bounce.
	if c.Input.Debounce > 0 && c.Input.Poll > c.Input.Debounce {
		errs = append(errs, fmt.Errorf("input.poll (%v) must not exceed input.debounce (%v)", c.Input.Poll, c.Input.Debounce))
	}

	pins := c.Pins()
	if pins.Button == pins.A || pins.Button == pins.B || pins.A == pins.B {
		errs = append(errs, fmt.Errorf("input pins must be distinct, got button=%d a=%d b=%d", pins.Button, pins.A, pins.B))
	}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"pin_button", pins.Button},
		{"pin_a", pins.A},
		{"pin_b", pins.B},
	} {
		if p.pin < 0 {
			errs = append(errs, fmt.Errorf("input.%s must not be negative, got %d", p.name, p.pin))
		}
	}

	if c.Card.Root == "" {
		errs = append(errs, errors.New("card.root is required"))
	}
	if c.Emulator.Capacity < 0 {
		errs = append(errs, fmt.Errorf("emulator.capacity must not be negative, got %d", c.Emulator.Capacity))
	}
	if c.Emulator.Address > 0x7f {
		errs = append(errs, fmt.Errorf("emulator.address %#x is not a 7-bit i2c address", c.Emulator.Address))
	}
	if c.MQTT.SelectRate < 0 {
		errs = append(errs, fmt.Errorf("mqtt.select_rate must not be negative, got %v", c.MQTT.SelectRate))
	}
	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		errs = append(errs, fmt.Errorf("logger.level: %w", err))
	}

	return errors.Join(errs...)
}
