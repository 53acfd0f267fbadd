package mqtt

import (
	"github.com/sweeney/eprom-ui/internal/app"
)

// Message is a publish as it would reach the broker.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records what would have been sent, for tests.
type FakePublisher struct {
	Events       []app.Event
	SystemEvents []SystemEvent

	// Messages holds both kinds of publish in order, with topic and flags.
	Messages []Message

	// Err, if set, fails every publish and nothing is recorded.
	Err error

	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event app.Event) error {
	if f.Err != nil {
		return f.Err
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: Topic, QoS: qosEvents, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.Err != nil {
		return f.Err
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, QoS: qosSystem, Retained: event.Retained, Payload: payload})
	return nil
}

// Payloads returns the UI event payloads in publish order.
func (f *FakePublisher) Payloads() [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == Topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset forgets everything recorded and clears the flags.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}

// Discard is a Publisher that drops everything, used when no broker is configured.
type Discard struct{}

func (Discard) Publish(app.Event) error         { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
