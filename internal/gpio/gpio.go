// Package gpio provides knob input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Levels is one raw sample of the three knob pins.
// All pins are pulled up, so true (high) is the idle level.
type Levels struct {
	Button bool // push button, low while pressed
	A      bool // encoder channel A
	B      bool // encoder channel B
}

// Reader reads the knob input pins.
type Reader interface {
	// Read returns the raw electrical levels of the button and encoder pins.
	Read() (Levels, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinButton = 17
	DefaultPinA      = 27
	DefaultPinB      = 22
)

// Pins selects the line offsets used by RealReader.
type Pins struct {
	Button int
	A      int
	B      int
}

// DefaultPins returns the stock wiring.
func DefaultPins() Pins {
	return Pins{Button: DefaultPinButton, A: DefaultPinA, B: DefaultPinB}
}
