package event

import (
	"sync/atomic"

	"github.com/dshills/cryptex/internal/event/topic"
)

// Subscription is a registered handler.
type Subscription interface {
	ID() string
	Topic() topic.Topic
	IsActive() bool

	// Pause stops delivery until Resume.
	Pause()
	Resume()
}

// SubscriptionConfig configures a subscription.
type SubscriptionConfig struct {
	Priority Priority

	// Filter, when set, must return true for an event to be delivered.
	Filter func(event any) bool

	// Once cancels the subscription after its first successful delivery.
	Once bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithPriority sets the subscription priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Priority = p
	}
}

// WithFilter sets a delivery predicate.
func WithFilter(f func(event any) bool) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce cancels the subscription after the first delivered event.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

type subscription struct {
	id      string
	seq     uint64
	topic   topic.Topic
	handler Handler
	config  SubscriptionConfig

	paused    atomic.Bool
	cancelled atomic.Bool
}

func (s *subscription) ID() string         { return s.id }
func (s *subscription) Topic() topic.Topic { return s.topic }
func (s *subscription) Pause()             { s.paused.Store(true) }
func (s *subscription) Resume()            { s.paused.Store(false) }

func (s *subscription) IsActive() bool {
	return !s.paused.Load() && !s.cancelled.Load()
}

func (s *subscription) shouldDeliver(event any) bool {
	if !s.IsActive() {
		return false
	}
	return s.config.Filter == nil || s.config.Filter(event)
}
