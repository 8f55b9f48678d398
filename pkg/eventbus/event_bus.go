// Package eventbus provides event-driven communication for flying operations lifecycle notifications.
package eventbus

import (
	"context"

	"github.com/dukex/flightline/pkg/events"
)

// Event is a workflow lifecycle event. Its type routes it to a handler.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by aircraft id, so one aircraft's events stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event. Returning an error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
