package model

import (
	"maps"
	"slices"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// Frame is a positional slot within a Roller. It has no identity of its
// own, so the snapshot value doubles as the live value.
type Frame = snapshot.Frame

// Cryptex is a positioned container of tapes, rollers and labels.
type Cryptex struct {
	id       entity.ID
	position entity.Vec2
	rotated  bool
	locks    entity.Locks
	tapes    []*Tape
	rollers  []*Roller
	labels   map[int]*Label
}

func (c *Cryptex) ID() entity.ID         { return c.id }
func (c *Cryptex) Position() entity.Vec2 { return c.position }
func (c *Cryptex) Rotated() bool         { return c.rotated }
func (c *Cryptex) Locks() entity.Locks   { return c.locks }

// Tapes returns the tapes in reading order.
func (c *Cryptex) Tapes() []*Tape { return slices.Clone(c.tapes) }

// Rollers returns the rollers in order.
func (c *Cryptex) Rollers() []*Roller { return slices.Clone(c.rollers) }

// Labels returns the labels sorted by offset.
func (c *Cryptex) Labels() []*Label {
	out := make([]*Label, 0, len(c.labels))
	for _, off := range slices.Sorted(maps.Keys(c.labels)) {
		out = append(out, c.labels[off])
	}
	return out
}

// LabelAt returns the label at offset, if any.
func (c *Cryptex) LabelAt(offset int) (*Label, bool) {
	lb, ok := c.labels[offset]
	return lb, ok
}

// TapeIndex returns the position of a tape, or -1.
func (c *Cryptex) TapeIndex(id entity.ID) int {
	return slices.IndexFunc(c.tapes, func(t *Tape) bool { return t.id == id })
}

// RollerIndex returns the position of a roller, or -1.
func (c *Cryptex) RollerIndex(id entity.ID) int {
	return slices.IndexFunc(c.rollers, func(r *Roller) bool { return r.id == id })
}

// Tape is a sparse overlay of writes, notes and breakpoints on a sequence.
type Tape struct {
	id          entity.ID
	cryptex     *Cryptex
	sequence    entity.SequenceKind
	pattern     []string
	writes      map[int]string
	notes       map[int]string
	breakpoints map[int]struct{}
	shift       int
	locks       entity.Locks
}

func (t *Tape) ID() entity.ID                 { return t.id }
func (t *Tape) Cryptex() *Cryptex             { return t.cryptex }
func (t *Tape) Sequence() entity.SequenceKind { return t.sequence }
func (t *Tape) Pattern() []string             { return slices.Clone(t.pattern) }
func (t *Tape) Shift() int                    { return t.shift }
func (t *Tape) Locks() entity.Locks           { return t.locks }

// Index returns the tape's position within its cryptex.
func (t *Tape) Index() int { return t.cryptex.TapeIndex(t.id) }

// Write returns the overwritten value at index, if any.
func (t *Tape) Write(index int) (string, bool) {
	v, ok := t.writes[index]
	return v, ok
}

// Note returns the note text at index, if any.
func (t *Tape) Note(index int) (string, bool) {
	v, ok := t.notes[index]
	return v, ok
}

// Breakpoint reports whether a breakpoint is set at index.
func (t *Tape) Breakpoint(index int) bool {
	_, ok := t.breakpoints[index]
	return ok
}

// Value returns the effective value at index: the overwrite if there is
// one, otherwise the repeating pattern, otherwise "".
func (t *Tape) Value(index int) string {
	if v, ok := t.writes[index]; ok {
		return v
	}
	n := len(t.pattern)
	if n == 0 {
		return ""
	}
	return t.pattern[((index%n)+n)%n]
}

// Roller carries frames over the cryptex's tapes.
type Roller struct {
	id      entity.ID
	cryptex *Cryptex
	kind    entity.RollerKind
	color   string
	frames  []Frame
	move    int
	hop     int
	locks   entity.Locks
}

func (r *Roller) ID() entity.ID           { return r.id }
func (r *Roller) Cryptex() *Cryptex       { return r.cryptex }
func (r *Roller) Kind() entity.RollerKind { return r.kind }
func (r *Roller) Color() string           { return r.color }
func (r *Roller) Move() int               { return r.move }
func (r *Roller) Hop() int                { return r.hop }
func (r *Roller) Locks() entity.Locks     { return r.locks }
func (r *Roller) Frames() []Frame         { return slices.Clone(r.frames) }
func (r *Roller) Len() int                { return len(r.frames) }

// Index returns the roller's position within its cryptex.
func (r *Roller) Index() int { return r.cryptex.RollerIndex(r.id) }

// Frame returns the frame at index.
func (r *Roller) Frame(index int) (Frame, bool) {
	if index < 0 || index >= len(r.frames) {
		return Frame{}, false
	}
	return r.frames[index], true
}

// Label is a named marker at an offset within a cryptex.
type Label struct {
	id      entity.ID
	cryptex *Cryptex
	offset  int
	name    string
}

func (lb *Label) ID() entity.ID     { return lb.id }
func (lb *Label) Cryptex() *Cryptex { return lb.cryptex }
func (lb *Label) Offset() int       { return lb.offset }
func (lb *Label) Name() string      { return lb.name }
