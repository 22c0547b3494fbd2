package snapshot

import (
	"errors"
	"fmt"

	"github.com/dshills/cryptex/internal/entity"
)

// ErrInvalid is returned for snapshots that violate a structural invariant.
var ErrInvalid = errors.New("invalid snapshot")

// Validate checks the structural invariants of a layer: ids are non-nil and
// unique across the whole layer, enum tags are known, and sparse
// collections have no duplicate keys.
func (l Layer) Validate() error {
	seen := make(map[entity.ID]entity.Kind)
	claim := func(id entity.ID, kind entity.Kind) error {
		if id.IsNil() {
			return fmt.Errorf("%w: %s with nil id", ErrInvalid, kind)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate id %s (%s and %s)", ErrInvalid, id, prev, kind)
		}
		seen[id] = kind
		return nil
	}

	for _, c := range l.Cryptexes {
		if err := claim(c.ID, entity.KindCryptex); err != nil {
			return err
		}
		for _, t := range c.Tapes {
			if err := claim(t.ID, entity.KindTape); err != nil {
				return err
			}
			if err := t.validate(); err != nil {
				return err
			}
		}
		for _, r := range c.Rollers {
			if err := claim(r.ID, entity.KindRoller); err != nil {
				return err
			}
			if err := r.validate(); err != nil {
				return err
			}
		}
		offsets := make(map[int]bool, len(c.Labels))
		for _, lb := range c.Labels {
			if err := claim(lb.ID, entity.KindLabel); err != nil {
				return err
			}
			if offsets[lb.Offset] {
				return fmt.Errorf("%w: cryptex %s has two labels at offset %d", ErrInvalid, c.ID, lb.Offset)
			}
			offsets[lb.Offset] = true
		}
	}
	return nil
}

// Validate checks a single cryptex subtree in isolation.
func (c Cryptex) Validate() error {
	return Layer{Cryptexes: []Cryptex{c}}.Validate()
}

func (t Tape) validate() error {
	if !t.Sequence.Valid() {
		return fmt.Errorf("%w: tape %s has unknown sequence %q", ErrInvalid, t.ID, t.Sequence)
	}
	writes := make(map[int]bool, len(t.Writes))
	for _, w := range t.Writes {
		if writes[w.Index] {
			return fmt.Errorf("%w: tape %s has two writes at %d", ErrInvalid, t.ID, w.Index)
		}
		writes[w.Index] = true
	}
	notes := make(map[int]bool, len(t.Notes))
	for _, n := range t.Notes {
		if notes[n.Index] {
			return fmt.Errorf("%w: tape %s has two notes at %d", ErrInvalid, t.ID, n.Index)
		}
		notes[n.Index] = true
	}
	bps := make(map[int]bool, len(t.Breakpoints))
	for _, b := range t.Breakpoints {
		if bps[b] {
			return fmt.Errorf("%w: tape %s has a duplicate breakpoint at %d", ErrInvalid, t.ID, b)
		}
		bps[b] = true
	}
	return nil
}

func (r Roller) validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: roller %s has unknown kind %q", ErrInvalid, r.ID, r.Kind)
	}
	for i, f := range r.Frames {
		if !f.Mode.Valid() {
			return fmt.Errorf("%w: roller %s frame %d has unknown mode %q", ErrInvalid, r.ID, i, f.Mode)
		}
	}
	return nil
}
