package input

import (
	"fmt"
	"time"

	"github.com/sweeney/eprom-ui/internal/gpio"
)

// Event is the result of one poll of the knob.
type Event struct {
	Time time.Time

	// Step is -1, 0 or +1, decided by this poll.
	Step int
	// Position is the cumulative encoder count after this poll.
	Position int

	// Button is the debounced button level (true = released, pulled up).
	Button bool
	// Rose is true when the button was released during this poll.
	Rose bool
	// Fell is true when the button was pressed during this poll.
	Fell bool
}

// Pressed reports whether the debounced button is held down.
func (e Event) Pressed() bool {
	return !e.Button
}

// Idle reports whether the poll produced nothing to act on.
func (e Event) Idle() bool {
	return e.Step == 0 && !e.Rose && !e.Fell
}

// Poller samples the knob pins and advances both decoders once per call.
// It is not safe for concurrent use; one loop owns it.
type Poller struct {
	reader  gpio.Reader
	now     func() time.Time
	button  *Switch
	encoder *Decoder
}

// NewPoller reads the initial pin levels and constructs the decoders from them.
func NewPoller(reader gpio.Reader, debounce time.Duration, now func() time.Time) (*Poller, error) {
	levels, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read initial levels: %w", err)
	}

	return &Poller{
		reader:  reader,
		now:     now,
		button:  NewSwitch(levels.Button, debounce, now()),
		encoder: NewDecoder(levels.A, levels.B),
	}, nil
}

// Poll reads the pins once and returns the resulting event.
// On a read error neither decoder is advanced.
func (p *Poller) Poll() (Event, error) {
	t := p.now()
	levels, err := p.reader.Read()
	if err != nil {
		return Event{Time: t}, err
	}

	p.button.Update(levels.Button, t)
	step := p.encoder.Update(levels.A, levels.B)

	return Event{
		Time:     t,
		Step:     step,
		Position: p.encoder.Position(),
		Button:   p.button.Value(),
		Rose:     p.button.Rose(),
		Fell:     p.button.Fell(),
	}, nil
}

// Position returns the encoder's cumulative count.
func (p *Poller) Position() int {
	return p.encoder.Position()
}

// Button returns the debounced button level.
func (p *Poller) Button() bool {
	return p.button.Value()
}

// Debounce returns the button debounce interval in effect.
func (p *Poller) Debounce() time.Duration {
	return p.button.Interval()
}
