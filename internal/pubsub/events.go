// Package pubsub provides a small generic publish/subscribe broker. The
// session publishes its user-facing notices through it and the log package
// fans log lines out to the preview's log pane.
package pubsub

import (
	"context"
	"time"
)

// EventType labels what happened to the payload.
type EventType string

// CreatedEvent marks a newly published payload.
const CreatedEvent EventType = "created"

// Event is one published payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
