package events

import (
	"context"
	"time"
)

// Event is a lifecycle fact published on the event bus.
type Event interface {
	// EventType returns the event code, e.g. "DOCUMENT_CREATED".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher is implemented by every event bus transport.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
