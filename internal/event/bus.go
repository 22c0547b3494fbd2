package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/dshills/cryptex/internal/event/topic"
)

// Bus is the notification bus.
type Bus interface {
	// Publish delivers event to every matching subscription before
	// returning. The joined handler errors are returned.
	Publish(ctx context.Context, event any) error

	Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error)
	Unsubscribe(sub Subscription) error

	// Pause drops published events until Resume.
	Pause()
	Resume()
	IsPaused() bool

	Stats() Stats
}

type bus struct {
	mu   sync.RWMutex
	subs []*subscription
	seq  uint64

	paused atomic.Bool

	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() Bus {
	return &bus{}
}

func (b *bus) Pause()         { b.paused.Store(true) }
func (b *bus) Resume()        { b.paused.Store(false) }
func (b *bus) IsPaused() bool { return b.paused.Load() }

func (b *bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	if b.paused.Load() {
		return nil
	}
	t := tp.EventTopic()
	b.eventsPublished.Add(1)

	var errs []error
	for _, sub := range b.match(t) {
		if !sub.shouldDeliver(event) {
			continue
		}
		err := b.dispatch(ctx, sub, event)
		b.handlersExecuted.Add(1)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sub.config.Once {
			_ = b.Unsubscribe(sub)
		}
	}
	return errors.Join(errs...)
}

// dispatch runs one handler. Failures and panics come back as a
// *DeliveryError.
func (b *bus) dispatch(ctx context.Context, sub *subscription, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &DeliveryError{Subscription: sub.id, Topic: sub.topic.String(), Panic: r, Stack: string(debug.Stack())}
		}
	}()
	if herr := sub.handler.Handle(ctx, event); herr != nil {
		b.handlerErrors.Add(1)
		return &DeliveryError{Subscription: sub.id, Topic: sub.topic.String(), Err: herr}
	}
	return nil
}

// match returns the matching subscriptions ordered by priority, then by
// subscription order.
func (b *bus) match(t topic.Topic) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*subscription
	for _, s := range b.subs {
		if t.Matches(s.topic) {
			out = append(out, s)
		}
	}
	return out
}

func (b *bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}
	cfg := SubscriptionConfig{Priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	sub := &subscription{
		id:      xid.New().String(),
		seq:     b.seq,
		topic:   pattern,
		handler: handler,
		config:  cfg,
	}
	i, _ := slices.BinarySearchFunc(b.subs, sub, func(a, s *subscription) int {
		if a.config.Priority != s.config.Priority {
			return int(a.config.Priority - s.config.Priority)
		}
		return int(a.seq) - int(s.seq)
	})
	b.subs = slices.Insert(b.subs, i, sub)
	return sub, nil
}

func (b *bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

func (b *bus) Unsubscribe(sub Subscription) error {
	s, ok := sub.(*subscription)
	if !ok || s == nil {
		return ErrSubscriptionNotFound
	}
	s.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(b.subs, s)
	if i < 0 {
		return ErrSubscriptionNotFound
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return nil
}

func (b *bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, s := range b.subs {
		if s.IsActive() {
			active++
		}
	}
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}
