package model

import (
	"fmt"
	"maps"
	"slices"

	pkgerrors "github.com/pkg/errors"

	"github.com/dshills/cryptex/internal/snapshot"
)

// FromSnapshot builds a live layer from a snapshot. The snapshot is
// validated first; on error nothing is returned.
func FromSnapshot(s snapshot.Layer, opts ...Option) (*Layer, error) {
	if err := s.Validate(); err != nil {
		return nil, pkgerrors.WithStack(fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	l := NewLayer()
	for _, cs := range s.Cryptexes {
		c := newCryptex(cs)
		l.cryptexes = append(l.cryptexes, c)
		l.register(c)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Snapshot serializes the layer.
func (l *Layer) Snapshot() snapshot.Layer {
	var s snapshot.Layer
	for _, c := range l.cryptexes {
		s.Cryptexes = append(s.Cryptexes, c.Snapshot())
	}
	return s
}

// Snapshot serializes the cryptex subtree.
func (c *Cryptex) Snapshot() snapshot.Cryptex {
	s := snapshot.Cryptex{
		ID:       c.id,
		Position: c.position,
		Rotated:  c.rotated,
		Locks:    c.locks,
	}
	for _, t := range c.tapes {
		s.Tapes = append(s.Tapes, t.Snapshot())
	}
	for _, r := range c.rollers {
		s.Rollers = append(s.Rollers, r.Snapshot())
	}
	for _, lb := range c.Labels() {
		s.Labels = append(s.Labels, lb.Snapshot())
	}
	return s
}

// Snapshot serializes the tape.
func (t *Tape) Snapshot() snapshot.Tape {
	s := snapshot.Tape{
		ID:       t.id,
		Sequence: t.sequence,
		Pattern:  slices.Clone(t.pattern),
		Shift:    t.shift,
		Locks:    t.locks,
	}
	for _, i := range slices.Sorted(maps.Keys(t.writes)) {
		s.Writes = append(s.Writes, snapshot.Write{Index: i, Value: t.writes[i]})
	}
	for _, i := range slices.Sorted(maps.Keys(t.notes)) {
		s.Notes = append(s.Notes, snapshot.Note{Index: i, Text: t.notes[i]})
	}
	for _, i := range slices.Sorted(maps.Keys(t.breakpoints)) {
		s.Breakpoints = append(s.Breakpoints, i)
	}
	return s
}

// Snapshot serializes the roller.
func (r *Roller) Snapshot() snapshot.Roller {
	return snapshot.Roller{
		ID:     r.id,
		Kind:   r.kind,
		Color:  r.color,
		Frames: slices.Clone(r.frames),
		Move:   r.move,
		Hop:    r.hop,
		Locks:  r.locks,
	}
}

// Snapshot serializes the label.
func (lb *Label) Snapshot() snapshot.Label {
	return snapshot.Label{ID: lb.id, Offset: lb.offset, Name: lb.name}
}

// Constructors. The snapshot must already be validated.

func newCryptex(s snapshot.Cryptex) *Cryptex {
	c := &Cryptex{
		id:       s.ID,
		position: s.Position,
		rotated:  s.Rotated,
		locks:    s.Locks,
		labels:   make(map[int]*Label, len(s.Labels)),
	}
	for _, ts := range s.Tapes {
		c.tapes = append(c.tapes, newTape(c, ts))
	}
	for _, rs := range s.Rollers {
		c.rollers = append(c.rollers, newRoller(c, rs))
	}
	for _, ls := range s.Labels {
		c.labels[ls.Offset] = newLabel(c, ls)
	}
	return c
}

func newTape(owner *Cryptex, s snapshot.Tape) *Tape {
	t := &Tape{
		id:          s.ID,
		cryptex:     owner,
		sequence:    s.Sequence,
		shift:       s.Shift,
		locks:       s.Locks,
		writes:      make(map[int]string, len(s.Writes)),
		notes:       make(map[int]string, len(s.Notes)),
		breakpoints: make(map[int]struct{}, len(s.Breakpoints)),
	}
	if len(s.Pattern) > 0 {
		t.pattern = slices.Clone(s.Pattern)
	}
	for _, w := range s.Writes {
		t.writes[w.Index] = w.Value
	}
	for _, n := range s.Notes {
		t.notes[n.Index] = n.Text
	}
	for _, b := range s.Breakpoints {
		t.breakpoints[b] = struct{}{}
	}
	return t
}

func newRoller(owner *Cryptex, s snapshot.Roller) *Roller {
	r := &Roller{
		id:      s.ID,
		cryptex: owner,
		kind:    s.Kind,
		color:   s.Color,
		move:    s.Move,
		hop:     s.Hop,
		locks:   s.Locks,
	}
	if len(s.Frames) > 0 {
		r.frames = slices.Clone(s.Frames)
	}
	return r
}

func newLabel(owner *Cryptex, s snapshot.Label) *Label {
	return &Label{id: s.ID, cryptex: owner, offset: s.Offset, name: s.Name}
}

// register adds a cryptex subtree to the id indexes.
func (l *Layer) register(c *Cryptex) {
	l.byCryptex[c.id] = c
	for _, t := range c.tapes {
		l.byTape[t.id] = t
	}
	for _, r := range c.rollers {
		l.byRoller[r.id] = r
	}
	for _, lb := range c.labels {
		l.byLabel[lb.id] = lb
	}
}

// unregister removes a cryptex subtree from the id indexes.
func (l *Layer) unregister(c *Cryptex) {
	delete(l.byCryptex, c.id)
	for _, t := range c.tapes {
		delete(l.byTape, t.id)
	}
	for _, r := range c.rollers {
		delete(l.byRoller, r.id)
	}
	for _, lb := range c.labels {
		delete(l.byLabel, lb.id)
	}
}
