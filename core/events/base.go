package events

import "time"

// Kind discriminates dialogue events so subscribers can switch on a stable
// string instead of type-asserting every concrete event.
type Kind string

// Event is what the orchestrator hands to OnEvent subscribers. Every event
// carries its kind and the moment it was raised.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base stamps an event with its kind and creation time. Concrete dialogue
// events embed it and add their own payload fields.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
