package model

import "github.com/dshills/cryptex/internal/entity"

// NotificationKind names a structural change. Kinds are dot separated so
// they double as event bus topics.
type NotificationKind string

const (
	CryptexAdded   NotificationKind = "cryptex.added"
	CryptexRemoved NotificationKind = "cryptex.removed"
	CryptexMoved   NotificationKind = "cryptex.moved"
	CryptexChanged NotificationKind = "cryptex.changed"

	TapeAdded   NotificationKind = "tape.added"
	TapeRemoved NotificationKind = "tape.removed"
	TapeMoved   NotificationKind = "tape.moved"
	TapeChanged NotificationKind = "tape.changed"

	RollerAdded   NotificationKind = "roller.added"
	RollerRemoved NotificationKind = "roller.removed"
	RollerMoved   NotificationKind = "roller.moved"
	RollerChanged NotificationKind = "roller.changed"

	FrameAdded   NotificationKind = "frame.added"
	FrameRemoved NotificationKind = "frame.removed"
	FrameChanged NotificationKind = "frame.changed"

	LabelAdded   NotificationKind = "label.added"
	LabelRemoved NotificationKind = "label.removed"
	LabelMoved   NotificationKind = "label.moved"
	LabelChanged NotificationKind = "label.changed"

	LocksChanged NotificationKind = "locks.changed"
)

// Notification describes one applied change.
type Notification struct {
	Kind NotificationKind

	// Container is the owner of Subject: the cryptex for tapes, rollers and
	// labels, the roller for frames, Nil for cryptexes.
	Container entity.ID

	// Subject is the changed entity. For frames it is the roller.
	Subject entity.ID

	// Index is the position (or label offset) after the change, or the
	// position the subject was removed from.
	Index int

	// From is the previous position for moves.
	From int
}

// Notifier receives notifications in the order changes were applied.
// Notify must not mutate the layer.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder is a Notifier that keeps everything it receives.
type Recorder struct {
	Notifications []Notification
}

// Notify appends n.
func (r *Recorder) Notify(n Notification) {
	r.Notifications = append(r.Notifications, n)
}

// Kinds returns the received kinds in order.
func (r *Recorder) Kinds() []NotificationKind {
	out := make([]NotificationKind, len(r.Notifications))
	for i, n := range r.Notifications {
		out[i] = n.Kind
	}
	return out
}
