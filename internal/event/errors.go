package event

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEvent         = errors.New("event has no topic")
	ErrInvalidTopic         = errors.New("invalid topic pattern")
	ErrNilHandler           = errors.New("nil handler")
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrHandlerPanic matches a DeliveryError caused by a panic.
	ErrHandlerPanic = errors.New("handler panicked")
)

// DeliveryError reports a handler that failed or panicked while an event
// was delivered to it. Delivery to other subscriptions continues.
type DeliveryError struct {
	Subscription string
	Topic        string

	// Err is the handler's returned error. Nil when it panicked.
	Err error

	// Panic and Stack are set when the handler panicked.
	Panic any
	Stack string
}

func (e *DeliveryError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("subscription %s (%s): panic: %v", e.Subscription, e.Topic, e.Panic)
	}
	return fmt.Sprintf("subscription %s (%s): %v", e.Subscription, e.Topic, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool {
	return target == ErrHandlerPanic && e.Panic != nil
}
