package events

import (
	"context"
	"time"
)

// Event types published by the services.
const (
	TypeUserRegistered      = "user.registered"
	TypePaymentOrderCreated = "payment.order_created"
	TypePaymentCaptured     = "payment.captured"
)

// Event is the JSON envelope written to the broker.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// New stamps an event of the given type.
func New(eventType string, data any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher delivers events to a topic, partitioned by key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event Event) error
	Close() error
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, string, string, Event) error { return nil }

func (nopPublisher) Close() error { return nil }
