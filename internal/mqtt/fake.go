package mqtt

import (
	"github.com/sweeney/button-sensor/internal/logic"
)

// Message is one publish captured by FakePublisher, with the topic, QoS and
// retain flag RealPublisher would have used.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Name is the button name used to build topics.
	Name string

	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages holds every successful publish in order, gesture and system alike.
	Messages []Message

	// PublishError and PublishSystemError, if set, fail the matching call
	// without recording anything.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool // returned by IsConnected
}

// NewFakePublisher creates a FakePublisher for a button named "button".
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Name: "button"}
}

// Publish records the gesture event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: Topic(f.Name), Payload: payload})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{
		Topic:    TopicSystem(f.Name),
		QoS:      1,
		Retained: event.Retained,
		Payload:  payload,
	})
	return nil
}

// Payloads returns the payloads published to topic, oldest first.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Gestures returns the names of the click groups published so far.
func (f *FakePublisher) Gestures() []string {
	var out []string
	for _, e := range f.Events {
		if e.Type == logic.EventClicks {
			out = append(out, e.Gesture())
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports the Connected field.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset forgets everything recorded and clears injected errors. Name is kept.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Name: f.Name}
}
