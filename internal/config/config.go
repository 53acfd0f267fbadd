// Package config loads the daemon's YAML configuration.
// The file is only ever read; nothing is written back.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/eprom-ui/internal/emulator"
	"github.com/sweeney/eprom-ui/internal/gpio"
	"github.com/sweeney/eprom-ui/internal/input"
)

// Config is the top-level daemon configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Card     CardConfig     `yaml:"card"`
	Emulator EmulatorConfig `yaml:"emulator"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// InputConfig holds knob wiring and timing.
type InputConfig struct {
	Chip      string        `yaml:"chip"`
	PinButton int           `yaml:"pin_button"`
	PinA      int           `yaml:"pin_a"`
	PinB      int           `yaml:"pin_b"`
	Poll      time.Duration `yaml:"poll"`
	Debounce  time.Duration `yaml:"debounce"`
}

// CardConfig locates the mounted SD card.
type CardConfig struct {
	Root  string `yaml:"root"`
	Label string `yaml:"label"`
}

// EmulatorConfig locates the port expander.
type EmulatorConfig struct {
	I2CBus   string `yaml:"i2c_bus"`
	Address  uint16 `yaml:"address"`
	Capacity int    `yaml:"capacity"`
	Headless bool   `yaml:"headless"` // no expander fitted; writes go nowhere
}

// MQTTConfig holds event publishing settings.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"` // empty disables publishing
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	// SelectRate caps SELECT events per second; fast spins are thinned.
	SelectRate float64 `yaml:"select_rate"`
}

// HTTPConfig holds the status server settings.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Input: InputConfig{
			Chip:      "gpiochip0",
			PinButton: gpio.DefaultPinButton,
			PinA:      gpio.DefaultPinA,
			PinB:      gpio.DefaultPinB,
			Poll:      time.Millisecond,
			Debounce:  input.DefaultDebounce,
		},
		Card: CardConfig{
			Root:  "/media/sd",
			Label: "/sd",
		},
		Emulator: EmulatorConfig{
			Address:  emulator.DefaultMCP23017Addr,
			Capacity: emulator.DefaultCapacity,
		},
		MQTT: MQTTConfig{
			ClientID:   "eprom-ui",
			Heartbeat:  15 * time.Minute,
			SelectRate: 5,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Pins returns the knob wiring.
func (c Config) Pins() gpio.Pins {
	return gpio.Pins{Button: c.Input.PinButton, A: c.Input.PinA, B: c.Input.PinB}
}
