package mqtt

import (
	"levelsense/internal/level"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	// States contains the snapshots sent to the state topic.
	States []level.Snapshot

	// StatePayloads contains the JSON documents for the state topic.
	StatePayloads [][]byte

	// Events contains the transition events, in order.
	Events []Event

	// EventPayloads contains the JSON documents for the event topic.
	EventPayloads [][]byte

	// StateError, if set, is returned by PublishState.
	StateError error

	// EventError, if set, is returned by PublishEvent.
	EventError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the state snapshot.
func (f *FakePublisher) PublishState(snap level.Snapshot) error {
	if f.StateError != nil {
		return f.StateError
	}

	f.States = append(f.States, snap)

	payload, err := FormatState(snap)
	if err != nil {
		return err
	}
	f.StatePayloads = append(f.StatePayloads, payload)
	return nil
}

// PublishEvent records the transition event.
func (f *FakePublisher) PublishEvent(event Event, snap level.Snapshot) error {
	if f.EventError != nil {
		return f.EventError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatEvent(event, snap)
	if err != nil {
		return err
	}
	f.EventPayloads = append(f.EventPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
