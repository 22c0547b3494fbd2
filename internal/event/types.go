package event

import "context"

// Priority determines handler execution order. Lower values run first.
type Priority int

const (
	// PriorityCritical is for handlers other handlers depend on, such as
	// view caches.
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 100

	// PriorityNormal is the default.
	PriorityNormal Priority = 200

	// PriorityLow is for metrics and logging.
	PriorityLow Priority = 300
)

func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Handler processes an event. The event is type-erased; handlers type
// assert to the Event[T] they expect.
type Handler interface {
	Handle(ctx context.Context, event any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event any) error { return f(ctx, event) }

// Stats is a snapshot of bus counters.
type Stats struct {
	EventsPublished   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}
