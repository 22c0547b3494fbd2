package model

import (
	"slices"

	"github.com/dshills/cryptex/internal/entity"
)

// Layer is an ordered sequence of cryptexes plus id indexes over every
// entity it contains. Ids are unique across the whole layer.
type Layer struct {
	cryptexes []*Cryptex

	byCryptex map[entity.ID]*Cryptex
	byTape    map[entity.ID]*Tape
	byRoller  map[entity.ID]*Roller
	byLabel   map[entity.ID]*Label

	notifier     Notifier
	enforceLocks bool
}

// Option configures a Layer.
type Option func(*Layer)

// WithNotifier sets the layer's notifier.
func WithNotifier(n Notifier) Option {
	return func(l *Layer) { l.notifier = n }
}

// WithoutLocks disables lock gating. Used for level authoring, where the
// author edits locked entities freely.
func WithoutLocks() Option {
	return func(l *Layer) { l.enforceLocks = false }
}

// NewLayer creates an empty layer. Locks are enforced unless WithoutLocks
// is given.
func NewLayer(opts ...Option) *Layer {
	l := &Layer{
		byCryptex:    make(map[entity.ID]*Cryptex),
		byTape:       make(map[entity.ID]*Tape),
		byRoller:     make(map[entity.ID]*Roller),
		byLabel:      make(map[entity.ID]*Label),
		enforceLocks: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetNotifier replaces the notifier. A nil notifier silences the layer.
func (l *Layer) SetNotifier(n Notifier) { l.notifier = n }

// EnforcesLocks reports whether records are lock gated on this layer.
func (l *Layer) EnforcesLocks() bool { return l.enforceLocks }

// SetEnforceLocks toggles lock gating.
func (l *Layer) SetEnforceLocks(on bool) { l.enforceLocks = on }

// Len returns the number of cryptexes.
func (l *Layer) Len() int { return len(l.cryptexes) }

// Cryptexes returns the cryptexes in order.
func (l *Layer) Cryptexes() []*Cryptex { return slices.Clone(l.cryptexes) }

// Cryptex looks up a cryptex by id.
func (l *Layer) Cryptex(id entity.ID) (*Cryptex, bool) {
	c, ok := l.byCryptex[id]
	return c, ok
}

// Tape looks up a tape by id.
func (l *Layer) Tape(id entity.ID) (*Tape, bool) {
	t, ok := l.byTape[id]
	return t, ok
}

// Roller looks up a roller by id.
func (l *Layer) Roller(id entity.ID) (*Roller, bool) {
	r, ok := l.byRoller[id]
	return r, ok
}

// Label looks up a label by id.
func (l *Layer) Label(id entity.ID) (*Label, bool) {
	lb, ok := l.byLabel[id]
	return lb, ok
}

// CryptexIndex returns the position of a cryptex, or -1.
func (l *Layer) CryptexIndex(id entity.ID) int {
	return slices.IndexFunc(l.cryptexes, func(c *Cryptex) bool { return c.id == id })
}

// Contains reports whether any entity in the layer has the id.
func (l *Layer) Contains(id entity.ID) bool {
	if _, ok := l.byCryptex[id]; ok {
		return true
	}
	if _, ok := l.byTape[id]; ok {
		return true
	}
	if _, ok := l.byRoller[id]; ok {
		return true
	}
	_, ok := l.byLabel[id]
	return ok
}

func (l *Layer) notify(n Notification) {
	if l.notifier != nil {
		l.notifier.Notify(n)
	}
}

// Lookups that fail with an invariant error.

func (l *Layer) mustCryptex(id entity.ID) (*Cryptex, error) {
	c, ok := l.byCryptex[id]
	if !ok {
		return nil, invariant(ErrNotFound, "cryptex %s", id)
	}
	return c, nil
}

func (l *Layer) mustTape(id entity.ID) (*Tape, error) {
	t, ok := l.byTape[id]
	if !ok {
		return nil, invariant(ErrNotFound, "tape %s", id)
	}
	return t, nil
}

func (l *Layer) mustRoller(id entity.ID) (*Roller, error) {
	r, ok := l.byRoller[id]
	if !ok {
		return nil, invariant(ErrNotFound, "roller %s", id)
	}
	return r, nil
}

func (l *Layer) mustLabel(id entity.ID) (*Label, error) {
	lb, ok := l.byLabel[id]
	if !ok {
		return nil, invariant(ErrNotFound, "label %s", id)
	}
	return lb, nil
}

func (l *Layer) mustFrame(roller entity.ID, index int) (*Roller, error) {
	r, err := l.mustRoller(roller)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(r.frames) {
		return nil, invariant(ErrOutOfRange, "frame %d of roller %s (len %d)", index, roller, len(r.frames))
	}
	return r, nil
}
