// Package event provides the synchronous notification bus of the
// workspace.
//
// Publishers hand an Event to the bus; every active subscription whose
// pattern matches the event topic runs in the publisher's goroutine, in
// priority order and then subscription order. Notifications therefore reach
// subscribers in the order the model applied the changes.
//
//	bus := event.NewBus()
//	sub, _ := bus.SubscribeFunc("edit.tape.*", func(ctx context.Context, ev any) error {
//	    n := ev.(event.Event[model.Notification]).Payload
//	    ...
//	})
//	defer bus.Unsubscribe(sub)
//
// Handler errors and panics are collected and returned from Publish after
// every handler has run; they never stop delivery to later subscribers.
package event
