package emulator

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MCP23017 registers in the default IOCON.BANK=0 layout. Sequential
// addressing lets one transaction cover both ports.
const (
	regIODIRA = 0x00
	regOLATA  = 0x14
)

// DefaultMCP23017Addr is the expander's address with A0-A2 grounded.
const DefaultMCP23017Addr = 0x20

// MCP23017 is a 16-bit I²C port expander with every pin driven as an output.
type MCP23017 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenMCP23017 opens the named I²C bus ("" for the first one) and configures
// all pins of the expander at addr as outputs.
func OpenMCP23017(busName string, addr uint16) (*MCP23017, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	m := &MCP23017{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: addr}}
	if _, err := m.dev.Write([]byte{regIODIRA, 0x00, 0x00}); err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure mcp23017 at %#x: %w", addr, err)
	}
	return m, nil
}

// Write sets OLATA (low byte) and OLATB (high byte).
func (m *MCP23017) Write(v uint16) error {
	if _, err := m.dev.Write([]byte{regOLATA, byte(v), byte(v >> 8)}); err != nil {
		return fmt.Errorf("write mcp23017 latch: %w", err)
	}
	return nil
}

// Close releases the I²C bus.
func (m *MCP23017) Close() error {
	return m.bus.Close()
}
