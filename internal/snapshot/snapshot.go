// Package snapshot defines the by-value serialized form of the editable
// structure.
//
// Snapshots carry identifiers and child snapshots but no behavior and no
// live references. Collections are kept in a canonical order (labels by
// offset, tape cells by index) and empty collections are nil, so two
// snapshots describe the same structure exactly when they are deeply equal.
package snapshot

import (
	"slices"

	"github.com/dshills/cryptex/internal/entity"
)

// Layer is an ordered sequence of cryptexes.
type Layer struct {
	Cryptexes []Cryptex `json:"cryptexes,omitempty" yaml:"cryptexes,omitempty"`
}

// Cryptex is a positioned container of tapes, rollers and labels.
type Cryptex struct {
	ID       entity.ID    `json:"id" yaml:"id"`
	Position entity.Vec2  `json:"position" yaml:"position"`
	Rotated  bool         `json:"rotated,omitempty" yaml:"rotated,omitempty"`
	Locks    entity.Locks `json:"locks,omitempty" yaml:"locks,omitempty"`
	Tapes    []Tape       `json:"tapes,omitempty" yaml:"tapes,omitempty"`
	Rollers  []Roller     `json:"rollers,omitempty" yaml:"rollers,omitempty"`
	Labels   []Label      `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Tape is a sparse overlay of writes, notes and breakpoints on top of its
// sequence.
type Tape struct {
	ID          entity.ID           `json:"id" yaml:"id"`
	Sequence    entity.SequenceKind `json:"sequence" yaml:"sequence"`
	Pattern     []string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Writes      []Write             `json:"writes,omitempty" yaml:"writes,omitempty"`
	Notes       []Note              `json:"notes,omitempty" yaml:"notes,omitempty"`
	Breakpoints []int               `json:"breakpoints,omitempty" yaml:"breakpoints,omitempty"`
	Shift       int                 `json:"shift,omitempty" yaml:"shift,omitempty"`
	Locks       entity.Locks        `json:"locks,omitempty" yaml:"locks,omitempty"`
}

// Write is an overwritten tape value.
type Write struct {
	Index int    `json:"index" yaml:"index"`
	Value string `json:"value" yaml:"value"`
}

// Note is a text annotation attached to a tape index.
type Note struct {
	Index int    `json:"index" yaml:"index"`
	Text  string `json:"text" yaml:"text"`
}

// Roller carries an ordered sequence of frames over the cryptex's tapes.
type Roller struct {
	ID     entity.ID         `json:"id" yaml:"id"`
	Kind   entity.RollerKind `json:"kind" yaml:"kind"`
	Color  string            `json:"color" yaml:"color"`
	Frames []Frame           `json:"frames,omitempty" yaml:"frames,omitempty"`
	Move   int               `json:"move,omitempty" yaml:"move,omitempty"`
	Hop    int               `json:"hop,omitempty" yaml:"hop,omitempty"`
	Locks  entity.Locks      `json:"locks,omitempty" yaml:"locks,omitempty"`
}

// Frame is a single slot within a roller. It is identified by position.
type Frame struct {
	Mode  entity.FrameMode `json:"mode" yaml:"mode"`
	Locks entity.Locks     `json:"locks,omitempty" yaml:"locks,omitempty"`
}

// Label is a named marker at an offset within a cryptex.
type Label struct {
	ID     entity.ID `json:"id" yaml:"id"`
	Offset int       `json:"offset" yaml:"offset"`
	Name   string    `json:"name" yaml:"name"`
}

// Clone returns a deep copy.
func (l Layer) Clone() Layer {
	if l.Cryptexes == nil {
		return Layer{}
	}
	out := Layer{Cryptexes: make([]Cryptex, len(l.Cryptexes))}
	for i, c := range l.Cryptexes {
		out.Cryptexes[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy.
func (c Cryptex) Clone() Cryptex {
	out := c
	if c.Tapes != nil {
		out.Tapes = make([]Tape, len(c.Tapes))
		for i, t := range c.Tapes {
			out.Tapes[i] = t.Clone()
		}
	}
	if c.Rollers != nil {
		out.Rollers = make([]Roller, len(c.Rollers))
		for i, r := range c.Rollers {
			out.Rollers[i] = r.Clone()
		}
	}
	out.Labels = slices.Clone(c.Labels)
	return out
}

// Clone returns a deep copy.
func (t Tape) Clone() Tape {
	out := t
	out.Pattern = slices.Clone(t.Pattern)
	out.Writes = slices.Clone(t.Writes)
	out.Notes = slices.Clone(t.Notes)
	out.Breakpoints = slices.Clone(t.Breakpoints)
	return out
}

// Clone returns a deep copy.
func (r Roller) Clone() Roller {
	out := r
	out.Frames = slices.Clone(r.Frames)
	return out
}

// Normalize sorts every sparse collection into canonical order and turns
// empty collections into nil. Hand-written or decoded snapshots should be
// normalized before comparison.
func (l *Layer) Normalize() {
	if len(l.Cryptexes) == 0 {
		l.Cryptexes = nil
	}
	for i := range l.Cryptexes {
		l.Cryptexes[i].Normalize()
	}
}

// Normalize puts c into canonical form.
func (c *Cryptex) Normalize() {
	if len(c.Tapes) == 0 {
		c.Tapes = nil
	}
	for i := range c.Tapes {
		c.Tapes[i].Normalize()
	}
	if len(c.Rollers) == 0 {
		c.Rollers = nil
	}
	for i := range c.Rollers {
		if len(c.Rollers[i].Frames) == 0 {
			c.Rollers[i].Frames = nil
		}
	}
	if len(c.Labels) == 0 {
		c.Labels = nil
	}
	slices.SortStableFunc(c.Labels, func(a, b Label) int { return a.Offset - b.Offset })
}

// Normalize puts t into canonical form.
func (t *Tape) Normalize() {
	if len(t.Pattern) == 0 {
		t.Pattern = nil
	}
	if len(t.Writes) == 0 {
		t.Writes = nil
	}
	if len(t.Notes) == 0 {
		t.Notes = nil
	}
	if len(t.Breakpoints) == 0 {
		t.Breakpoints = nil
	}
	slices.SortStableFunc(t.Writes, func(a, b Write) int { return a.Index - b.Index })
	slices.SortStableFunc(t.Notes, func(a, b Note) int { return a.Index - b.Index })
	slices.Sort(t.Breakpoints)
}

// Cryptex returns the cryptex with the given id.
func (l Layer) Cryptex(id entity.ID) (Cryptex, bool) {
	for _, c := range l.Cryptexes {
		if c.ID == id {
			return c, true
		}
	}
	return Cryptex{}, false
}

// Tape returns the tape with the given id.
func (c Cryptex) Tape(id entity.ID) (Tape, bool) {
	for _, t := range c.Tapes {
		if t.ID == id {
			return t, true
		}
	}
	return Tape{}, false
}

// Roller returns the roller with the given id.
func (c Cryptex) Roller(id entity.ID) (Roller, bool) {
	for _, r := range c.Rollers {
		if r.ID == id {
			return r, true
		}
	}
	return Roller{}, false
}

// LabelAt returns the label at offset.
func (c Cryptex) LabelAt(offset int) (Label, bool) {
	for _, lb := range c.Labels {
		if lb.Offset == offset {
			return lb, true
		}
	}
	return Label{}, false
}
