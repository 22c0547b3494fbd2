package model

import (
	"fmt"
	"slices"

	pkgerrors "github.com/pkg/errors"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// Cryptexes

// InsertCryptex builds a cryptex subtree from s and inserts it at index.
func (l *Layer) InsertCryptex(index int, s snapshot.Cryptex) (*Cryptex, error) {
	if index < 0 || index > len(l.cryptexes) {
		return nil, invariant(ErrOutOfRange, "insert cryptex at %d (len %d)", index, len(l.cryptexes))
	}
	if err := l.CheckNewCryptex(s); err != nil {
		return nil, err
	}

	c := newCryptex(s)
	l.cryptexes = slices.Insert(l.cryptexes, index, c)
	l.register(c)
	l.notify(Notification{Kind: CryptexAdded, Subject: c.id, Index: index})
	return c, nil
}

// RemoveCryptex removes a cryptex and everything it owns.
func (l *Layer) RemoveCryptex(id entity.ID) error {
	c, err := l.mustCryptex(id)
	if err != nil {
		return err
	}
	index := l.CryptexIndex(id)
	l.cryptexes = slices.Delete(l.cryptexes, index, index+1)
	l.unregister(c)
	l.notify(Notification{Kind: CryptexRemoved, Subject: id, Index: index})
	return nil
}

// MoveCryptex places a cryptex at index in the layer order and sets its
// position.
func (l *Layer) MoveCryptex(id entity.ID, index int, position entity.Vec2) error {
	c, err := l.mustCryptex(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(l.cryptexes) {
		return invariant(ErrOutOfRange, "move cryptex %s to %d (len %d)", id, index, len(l.cryptexes))
	}
	from := l.CryptexIndex(id)
	l.cryptexes = reorder(l.cryptexes, from, index)
	c.position = position
	l.notify(Notification{Kind: CryptexMoved, Subject: id, Index: index, From: from})
	return nil
}

// SetRotated sets a cryptex's rotation flag.
func (l *Layer) SetRotated(id entity.ID, rotated bool) error {
	c, err := l.mustCryptex(id)
	if err != nil {
		return err
	}
	c.rotated = rotated
	l.notify(Notification{Kind: CryptexChanged, Subject: id, Index: l.CryptexIndex(id)})
	return nil
}

// Tapes

// InsertTape builds a tape from s and inserts it into a cryptex at index.
func (l *Layer) InsertTape(cryptex entity.ID, index int, s snapshot.Tape) (*Tape, error) {
	c, err := l.mustCryptex(cryptex)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(c.tapes) {
		return nil, invariant(ErrOutOfRange, "insert tape at %d of cryptex %s (len %d)", index, cryptex, len(c.tapes))
	}
	if err := l.CheckNewTape(cryptex, s); err != nil {
		return nil, err
	}

	t := newTape(c, s)
	c.tapes = slices.Insert(c.tapes, index, t)
	l.byTape[t.id] = t
	l.notify(Notification{Kind: TapeAdded, Container: cryptex, Subject: t.id, Index: index})
	return t, nil
}

// RemoveTape removes a tape from its cryptex.
func (l *Layer) RemoveTape(id entity.ID) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	c := t.cryptex
	index := c.TapeIndex(id)
	c.tapes = slices.Delete(c.tapes, index, index+1)
	delete(l.byTape, id)
	l.notify(Notification{Kind: TapeRemoved, Container: c.id, Subject: id, Index: index})
	return nil
}

// MoveTape places a tape at index within its cryptex and sets its shift.
func (l *Layer) MoveTape(id entity.ID, index, shift int) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	c := t.cryptex
	if index < 0 || index >= len(c.tapes) {
		return invariant(ErrOutOfRange, "move tape %s to %d (len %d)", id, index, len(c.tapes))
	}
	from := c.TapeIndex(id)
	c.tapes = reorder(c.tapes, from, index)
	t.shift = shift
	l.notify(Notification{Kind: TapeMoved, Container: c.id, Subject: id, Index: index, From: from})
	return nil
}

// SetWrite overwrites the value at index, or erases the overwrite when
// value is nil.
func (l *Layer) SetWrite(id entity.ID, index int, value *string) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	if value == nil {
		delete(t.writes, index)
	} else {
		t.writes[index] = *value
	}
	l.notify(Notification{Kind: TapeChanged, Container: t.cryptex.id, Subject: id, Index: index})
	return nil
}

// SetNote attaches a note at index, or removes it when text is nil.
func (l *Layer) SetNote(id entity.ID, index int, text *string) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	if text == nil {
		delete(t.notes, index)
	} else {
		t.notes[index] = *text
	}
	l.notify(Notification{Kind: TapeChanged, Container: t.cryptex.id, Subject: id, Index: index})
	return nil
}

// SetBreakpoint sets or clears a breakpoint at index.
func (l *Layer) SetBreakpoint(id entity.ID, index int, on bool) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	if on {
		t.breakpoints[index] = struct{}{}
	} else {
		delete(t.breakpoints, index)
	}
	l.notify(Notification{Kind: TapeChanged, Container: t.cryptex.id, Subject: id, Index: index})
	return nil
}

// SetSequence replaces a tape's sequence kind and pattern.
func (l *Layer) SetSequence(id entity.ID, kind entity.SequenceKind, pattern []string) error {
	t, err := l.mustTape(id)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return invariant(ErrInvalidValue, "sequence %q", kind)
	}
	t.sequence = kind
	t.pattern = nil
	if len(pattern) > 0 {
		t.pattern = slices.Clone(pattern)
	}
	l.notify(Notification{Kind: TapeChanged, Container: t.cryptex.id, Subject: id, Index: -1})
	return nil
}

// Rollers

// InsertRoller builds a roller from s and inserts it into a cryptex at index.
func (l *Layer) InsertRoller(cryptex entity.ID, index int, s snapshot.Roller) (*Roller, error) {
	c, err := l.mustCryptex(cryptex)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(c.rollers) {
		return nil, invariant(ErrOutOfRange, "insert roller at %d of cryptex %s (len %d)", index, cryptex, len(c.rollers))
	}
	if err := l.CheckNewRoller(cryptex, s); err != nil {
		return nil, err
	}

	r := newRoller(c, s)
	c.rollers = slices.Insert(c.rollers, index, r)
	l.byRoller[r.id] = r
	l.notify(Notification{Kind: RollerAdded, Container: cryptex, Subject: r.id, Index: index})
	return r, nil
}

// RemoveRoller removes a roller from its cryptex.
func (l *Layer) RemoveRoller(id entity.ID) error {
	r, err := l.mustRoller(id)
	if err != nil {
		return err
	}
	c := r.cryptex
	index := c.RollerIndex(id)
	c.rollers = slices.Delete(c.rollers, index, index+1)
	delete(l.byRoller, id)
	l.notify(Notification{Kind: RollerRemoved, Container: c.id, Subject: id, Index: index})
	return nil
}

// MoveRoller places a roller at index within its cryptex and sets its
// move and hop offsets.
func (l *Layer) MoveRoller(id entity.ID, index, move, hop int) error {
	r, err := l.mustRoller(id)
	if err != nil {
		return err
	}
	c := r.cryptex
	if index < 0 || index >= len(c.rollers) {
		return invariant(ErrOutOfRange, "move roller %s to %d (len %d)", id, index, len(c.rollers))
	}
	from := c.RollerIndex(id)
	c.rollers = reorder(c.rollers, from, index)
	r.move, r.hop = move, hop
	l.notify(Notification{Kind: RollerMoved, Container: c.id, Subject: id, Index: index, From: from})
	return nil
}

// SetRollerColor sets a roller's color.
func (l *Layer) SetRollerColor(id entity.ID, color string) error {
	r, err := l.mustRoller(id)
	if err != nil {
		return err
	}
	r.color = color
	l.notify(Notification{Kind: RollerChanged, Container: r.cryptex.id, Subject: id, Index: r.Index()})
	return nil
}

// Frames

// InsertFrame inserts a frame into a roller at index.
func (l *Layer) InsertFrame(roller entity.ID, index int, f Frame) error {
	r, err := l.mustRoller(roller)
	if err != nil {
		return err
	}
	if index < 0 || index > len(r.frames) {
		return invariant(ErrOutOfRange, "insert frame at %d of roller %s (len %d)", index, roller, len(r.frames))
	}
	if !f.Mode.Valid() {
		return invariant(ErrInvalidValue, "frame mode %q", f.Mode)
	}
	r.frames = slices.Insert(r.frames, index, f)
	l.notify(Notification{Kind: FrameAdded, Container: roller, Subject: roller, Index: index})
	return nil
}

// RemoveFrame removes the frame at index.
func (l *Layer) RemoveFrame(roller entity.ID, index int) error {
	r, err := l.mustFrame(roller, index)
	if err != nil {
		return err
	}
	r.frames = slices.Delete(r.frames, index, index+1)
	if len(r.frames) == 0 {
		r.frames = nil
	}
	l.notify(Notification{Kind: FrameRemoved, Container: roller, Subject: roller, Index: index})
	return nil
}

// SetFrameMode sets the mode of the frame at index.
func (l *Layer) SetFrameMode(roller entity.ID, index int, mode entity.FrameMode) error {
	r, err := l.mustFrame(roller, index)
	if err != nil {
		return err
	}
	if !mode.Valid() {
		return invariant(ErrInvalidValue, "frame mode %q", mode)
	}
	r.frames[index].Mode = mode
	l.notify(Notification{Kind: FrameChanged, Container: roller, Subject: roller, Index: index})
	return nil
}

// Labels

// InsertLabel adds a label to a cryptex at the label's offset.
func (l *Layer) InsertLabel(cryptex entity.ID, s snapshot.Label) (*Label, error) {
	c, err := l.mustCryptex(cryptex)
	if err != nil {
		return nil, err
	}
	if s.ID.IsNil() {
		return nil, invariant(ErrInvalidValue, "label with nil id")
	}
	if l.Contains(s.ID) {
		return nil, invariant(ErrDuplicateID, "label %s", s.ID)
	}
	if _, taken := c.labels[s.Offset]; taken {
		return nil, invariant(ErrOccupied, "label offset %d of cryptex %s", s.Offset, cryptex)
	}

	lb := newLabel(c, s)
	c.labels[lb.offset] = lb
	l.byLabel[lb.id] = lb
	l.notify(Notification{Kind: LabelAdded, Container: cryptex, Subject: lb.id, Index: lb.offset})
	return lb, nil
}

// RemoveLabel removes a label.
func (l *Layer) RemoveLabel(id entity.ID) error {
	lb, err := l.mustLabel(id)
	if err != nil {
		return err
	}
	delete(lb.cryptex.labels, lb.offset)
	delete(l.byLabel, id)
	l.notify(Notification{Kind: LabelRemoved, Container: lb.cryptex.id, Subject: id, Index: lb.offset})
	return nil
}

// MoveLabel relocates a label to another offset.
func (l *Layer) MoveLabel(id entity.ID, offset int) error {
	lb, err := l.mustLabel(id)
	if err != nil {
		return err
	}
	if offset == lb.offset {
		return nil
	}
	c := lb.cryptex
	if _, taken := c.labels[offset]; taken {
		return invariant(ErrOccupied, "label offset %d of cryptex %s", offset, c.id)
	}
	from := lb.offset
	delete(c.labels, from)
	lb.offset = offset
	c.labels[offset] = lb
	l.notify(Notification{Kind: LabelMoved, Container: c.id, Subject: id, Index: offset, From: from})
	return nil
}

// RenameLabel changes a label's display name.
func (l *Layer) RenameLabel(id entity.ID, name string) error {
	lb, err := l.mustLabel(id)
	if err != nil {
		return err
	}
	lb.name = name
	l.notify(Notification{Kind: LabelChanged, Container: lb.cryptex.id, Subject: id, Index: lb.offset})
	return nil
}

// CheckNewCryptex reports whether s is a valid subtree none of whose ids
// are present in the layer. It does not modify the layer.
func (l *Layer) CheckNewCryptex(s snapshot.Cryptex) error {
	if err := s.Validate(); err != nil {
		return pkgerrors.WithStack(fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	return l.checkFresh(s)
}

// CheckNewTape is CheckNewCryptex for a tape added to cryptex.
func (l *Layer) CheckNewTape(cryptex entity.ID, s snapshot.Tape) error {
	if err := (snapshot.Cryptex{ID: cryptex, Tapes: []snapshot.Tape{s}}).Validate(); err != nil {
		return pkgerrors.WithStack(fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	if l.Contains(s.ID) {
		return invariant(ErrDuplicateID, "tape %s", s.ID)
	}
	return nil
}

// CheckNewRoller is CheckNewCryptex for a roller added to cryptex.
func (l *Layer) CheckNewRoller(cryptex entity.ID, s snapshot.Roller) error {
	if err := (snapshot.Cryptex{ID: cryptex, Rollers: []snapshot.Roller{s}}).Validate(); err != nil {
		return pkgerrors.WithStack(fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}
	if l.Contains(s.ID) {
		return invariant(ErrDuplicateID, "roller %s", s.ID)
	}
	return nil
}

// checkFresh fails if any id in s is already present in the layer.
func (l *Layer) checkFresh(s snapshot.Cryptex) error {
	if l.Contains(s.ID) {
		return invariant(ErrDuplicateID, "cryptex %s", s.ID)
	}
	for _, t := range s.Tapes {
		if l.Contains(t.ID) {
			return invariant(ErrDuplicateID, "tape %s", t.ID)
		}
	}
	for _, r := range s.Rollers {
		if l.Contains(r.ID) {
			return invariant(ErrDuplicateID, "roller %s", r.ID)
		}
	}
	for _, lb := range s.Labels {
		if l.Contains(lb.ID) {
			return invariant(ErrDuplicateID, "label %s", lb.ID)
		}
	}
	return nil
}

// reorder moves the element at from to index to, shifting the elements in
// between.
func reorder[T any](s []T, from, to int) []T {
	if from == to {
		return s
	}
	v := s[from]
	s = slices.Delete(s, from, from+1)
	return slices.Insert(s, to, v)
}
