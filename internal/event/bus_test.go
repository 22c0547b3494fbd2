package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/event/topic"
)

func record(got *[]string, name string) HandlerFunc {
	return func(ctx context.Context, ev any) error {
		*got = append(*got, name+":"+ev.(TopicProvider).EventTopic().String())
		return nil
	}
}

func TestBus_DeliversInPriorityThenSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var got []string

	_, err := b.SubscribeFunc("edit.**", record(&got, "low"), WithPriority(PriorityLow))
	require.NoError(t, err)
	_, err = b.SubscribeFunc("edit.tape.*", record(&got, "first"))
	require.NoError(t, err)
	_, err = b.SubscribeFunc("edit.tape.added", record(&got, "second"))
	require.NoError(t, err)
	_, err = b.SubscribeFunc("*.tape.added", record(&got, "critical"), WithPriority(PriorityCritical))
	require.NoError(t, err)
	_, err = b.SubscribeFunc("base.**", record(&got, "other"))
	require.NoError(t, err)

	require.NoError(t, b.Publish(context.Background(), NewEvent[int]("edit.tape.added", 1, "test")))
	assert.Equal(t, []string{
		"critical:edit.tape.added",
		"first:edit.tape.added",
		"second:edit.tape.added",
		"low:edit.tape.added",
	}, got)
}

func TestBus_EventsArriveInPublishOrder(t *testing.T) {
	b := NewBus()
	var got []int
	_, err := b.SubscribeFunc("**", func(ctx context.Context, ev any) error {
		got = append(got, ev.(Event[int]).Payload)
		return nil
	})
	require.NoError(t, err)

	for i := range 10 {
		require.NoError(t, b.Publish(context.Background(), NewEvent("n", i, "test")))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestBus_HandlerErrorsDoNotStopDelivery(t *testing.T) {
	b := NewBus()
	boom := errors.New("boom")
	var got []string

	_, _ = b.SubscribeFunc("a", func(context.Context, any) error { return boom })
	_, _ = b.SubscribeFunc("a", func(context.Context, any) error { panic("bad handler") })
	_, _ = b.SubscribeFunc("a", record(&got, "last"))

	err := b.Publish(context.Background(), NewEvent[struct{}]("a", struct{}{}, "test"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrHandlerPanic)

	var herr *DeliveryError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "a", herr.Topic)
	assert.Equal(t, []string{"last:a"}, got)

	stats := b.Stats()
	assert.EqualValues(t, 1, stats.EventsPublished)
	assert.EqualValues(t, 3, stats.HandlersExecuted)
	assert.EqualValues(t, 1, stats.HandlerErrors)
	assert.EqualValues(t, 1, stats.HandlerPanics)
}

func TestBus_SubscriptionLifecycle(t *testing.T) {
	b := NewBus()
	count := 0
	inc := func(context.Context, any) error { count++; return nil }
	ctx := context.Background()
	ev := NewEvent[int]("x", 0, "test")

	sub, err := b.SubscribeFunc("x", inc)
	require.NoError(t, err)
	assert.Equal(t, topic.Topic("x"), sub.Topic())
	assert.NotEmpty(t, sub.ID())

	require.NoError(t, b.Publish(ctx, ev))
	sub.Pause()
	assert.False(t, sub.IsActive())
	require.NoError(t, b.Publish(ctx, ev))
	sub.Resume()
	require.NoError(t, b.Publish(ctx, ev))
	assert.Equal(t, 2, count)

	require.NoError(t, b.Unsubscribe(sub))
	assert.ErrorIs(t, b.Unsubscribe(sub), ErrSubscriptionNotFound)
	require.NoError(t, b.Publish(ctx, ev))
	assert.Equal(t, 2, count)

	_, err = b.SubscribeFunc("x", inc, WithOnce())
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, ev))
	require.NoError(t, b.Publish(ctx, ev))
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, b.Stats().ActiveSubscribers)

	_, err = b.SubscribeFunc("x", inc, WithFilter(func(ev any) bool {
		return ev.(Event[int]).Payload > 0
	}))
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, ev))
	require.NoError(t, b.Publish(ctx, NewEvent[int]("x", 1, "test")))
	assert.Equal(t, 4, count)
}

func TestBus_PauseDropsEvents(t *testing.T) {
	b := NewBus()
	count := 0
	_, _ = b.SubscribeFunc("x", func(context.Context, any) error { count++; return nil })

	b.Pause()
	assert.True(t, b.IsPaused())
	require.NoError(t, b.Publish(context.Background(), NewEvent[int]("x", 0, "test")))
	b.Resume()
	require.NoError(t, b.Publish(context.Background(), NewEvent[int]("x", 0, "test")))
	assert.Equal(t, 1, count)
}

func TestBus_Rejects(t *testing.T) {
	b := NewBus()
	_, err := b.Subscribe("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
	_, err = b.SubscribeFunc("x", nil)
	assert.ErrorIs(t, err, ErrNilHandler)
	_, err = b.SubscribeFunc("a..b", func(context.Context, any) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidTopic)

	assert.ErrorIs(t, b.Publish(context.Background(), "not an event"), ErrInvalidEvent)
	assert.ErrorIs(t, b.Publish(context.Background(), NewEvent[int]("", 0, "test")), ErrInvalidEvent)
}

func TestEvent_Metadata(t *testing.T) {
	a := NewEvent[int]("x", 1, "engine")
	b := NewEvent[int]("x", 1, "engine")
	assert.NotEqual(t, a.Metadata.ID, b.Metadata.ID)
	assert.Equal(t, "engine", a.EventMetadata().Source)
	assert.False(t, a.Metadata.Timestamp.IsZero())
	assert.Equal(t, "op", a.WithCorrelation("op").Metadata.CorrelationID)
	assert.Empty(t, a.Metadata.CorrelationID)
}
