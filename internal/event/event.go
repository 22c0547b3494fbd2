package event

import (
	"time"

	"github.com/rs/xid"

	"github.com/dshills/cryptex/internal/event/topic"
)

// Event is a typed event. Events are immutable once created.
type Event[T any] struct {
	Type     topic.Topic
	Payload  T
	Metadata Metadata
}

// Metadata is attached to every event.
type Metadata struct {
	// ID is unique per event instance.
	ID string

	Timestamp time.Time

	// Source names the publishing component.
	Source string

	// CorrelationID links events caused by one operation, such as every
	// notification emitted by a single undo.
	CorrelationID string
}

// NewEvent creates an event with fresh metadata.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        xid.New().String(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic { return e.Type }

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata { return e.Metadata }

// WithCorrelation returns a copy of the event with a correlation id set.
func (e Event[T]) WithCorrelation(id string) Event[T] {
	e.Metadata.CorrelationID = id
	return e
}

// TopicProvider is implemented by every publishable event.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// MetadataProvider is implemented by types that carry Metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}
