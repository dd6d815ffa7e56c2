// Package outbox declares how domain events leave a use case.
package outbox

import "context"

type Event interface {
	EventName() string
}

// Keyed events name the partition key that keeps related events in order, e.g. a session id.
type Keyed interface {
	EventKey() string
}

type Handler func(ctx context.Context, e Event) error

// Publisher hands an event off; it must not block the caller beyond ctx.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
