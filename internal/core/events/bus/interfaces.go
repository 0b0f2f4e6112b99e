package bus

import "time"

// EventBus is an in-process pub/sub bus.
//
// Handlers subscribe by Event.Type() within an optional topic (the default
// topic is ""). Publish delivers synchronously in the caller goroutine, in
// subscription order, and joins handler errors. All methods are safe for
// concurrent use; handlers should return quickly.
type EventBus interface {
	Publish(event Event) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	Unsubscribe(Subscription) error

	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	PublishToTopic(topic string, event Event) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics is only updated while at least one observer is registered.
	GetMetrics() EventBusMetrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	ID() string
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
	Metadata() map[string]any
}

// EventHandler is invoked per delivered event; its error is joined into the
// result of Publish.
type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return quickly.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}
