package record

import (
	"fmt"
	"slices"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/model"
)

// Apply performs r against l and returns its inverse. With invertOnly set
// the layer is not modified, but every check still runs, so the returned
// error says whether r could apply.
func Apply(l *model.Layer, r Record, invertOnly bool) (Record, error) {
	return applier{layer: l, dry: invertOnly, gated: true}.apply(r)
}

// Restore applies r without lock gating. The edit log uses it to replay
// inverses and redo entries, which were legal when first applied.
func Restore(l *model.Layer, r Record) (Record, error) {
	return applier{layer: l}.apply(r)
}

// CanApply reports whether r would apply to l.
func CanApply(l *model.Layer, r Record) error {
	_, err := Apply(l, r, true)
	return err
}

type applier struct {
	layer *model.Layer
	dry   bool
	gated bool
}

func (a applier) apply(r Record) (Record, error) {
	switch r := r.(type) {
	case CreateCryptex:
		return a.createCryptex(r)
	case DestroyCryptex:
		return a.destroyCryptex(r)
	case MoveCryptex:
		return a.moveCryptex(r)
	case RotateCryptex:
		return a.rotateCryptex(r)
	case CreateTape:
		return a.createTape(r)
	case DestroyTape:
		return a.destroyTape(r)
	case MoveTape:
		return a.moveTape(r)
	case WriteTape:
		return a.writeTape(r)
	case SetNote:
		return a.setNote(r)
	case SetBreakpoint:
		return a.setBreakpoint(r)
	case SetSequence:
		return a.setSequence(r)
	case CreateRoller:
		return a.createRoller(r)
	case DestroyRoller:
		return a.destroyRoller(r)
	case MoveRoller:
		return a.moveRoller(r)
	case SetRollerColor:
		return a.setRollerColor(r)
	case InsertFrame:
		return a.insertFrame(r)
	case RemoveFrame:
		return a.removeFrame(r)
	case SetFrameMode:
		return a.setFrameMode(r)
	case CreateLabel:
		return a.createLabel(r)
	case DestroyLabel:
		return a.destroyLabel(r)
	case MoveLabel:
		return a.moveLabel(r)
	case RenameLabel:
		return a.renameLabel(r)
	case SetLocks:
		return a.setLocks(r)
	case nil:
		return nil, model.Invariantf(model.ErrInvalidValue, "nil record")
	default:
		return nil, model.Invariantf(model.ErrInvalidValue, "unknown record %T", r)
	}
}

// gate checks that ref exists and, when gating, that flag is not set.
func (a applier) gate(ref entity.Ref, flag entity.Locks) error {
	if a.gated {
		return a.layer.Gate(ref, flag)
	}
	_, err := a.layer.LocksOf(ref)
	return err
}

// commit runs fn unless this is a dry run and returns inv.
func (a applier) commit(inv Record, fn func() error) (Record, error) {
	if !a.dry {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func inRange(what string, index, n int) error {
	if index < 0 || index >= n {
		return model.Invariantf(model.ErrOutOfRange, "%s index %d (len %d)", what, index, n)
	}
	return nil
}

func fresh(l *model.Layer, id entity.ID) error {
	if id.IsNil() {
		return model.Invariantf(model.ErrInvalidValue, "nil id")
	}
	if l.Contains(id) {
		return model.Invariantf(model.ErrDuplicateID, "%s", id)
	}
	return nil
}

func notFound(kind entity.Kind, id entity.ID) error {
	return model.Invariantf(model.ErrNotFound, "%s %s", kind, id)
}

// Cryptexes

func (a applier) createCryptex(r CreateCryptex) (Record, error) {
	if err := inRange("cryptex", r.Index, a.layer.Len()+1); err != nil {
		return nil, err
	}
	if err := fresh(a.layer, r.Cryptex.ID); err != nil {
		return nil, err
	}
	if err := a.layer.CheckNewCryptex(r.Cryptex); err != nil {
		return nil, err
	}
	return a.commit(DestroyCryptex{ID: r.Cryptex.ID}, func() error {
		_, err := a.layer.InsertCryptex(r.Index, r.Cryptex)
		return err
	})
}

func (a applier) destroyCryptex(r DestroyCryptex) (Record, error) {
	c, ok := a.layer.Cryptex(r.ID)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.ID)
	}
	if err := a.gate(entity.CryptexRef(r.ID), entity.LockDelete); err != nil {
		return nil, err
	}
	inv := CreateCryptex{Index: a.layer.CryptexIndex(r.ID), Cryptex: c.Snapshot()}
	return a.commit(inv, func() error { return a.layer.RemoveCryptex(r.ID) })
}

func (a applier) moveCryptex(r MoveCryptex) (Record, error) {
	c, ok := a.layer.Cryptex(r.ID)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.ID)
	}
	if err := a.gate(entity.CryptexRef(r.ID), entity.LockMove); err != nil {
		return nil, err
	}
	if err := inRange("cryptex", r.Index, a.layer.Len()); err != nil {
		return nil, err
	}
	inv := MoveCryptex{ID: r.ID, Index: a.layer.CryptexIndex(r.ID), Position: c.Position()}
	return a.commit(inv, func() error { return a.layer.MoveCryptex(r.ID, r.Index, r.Position) })
}

func (a applier) rotateCryptex(r RotateCryptex) (Record, error) {
	c, ok := a.layer.Cryptex(r.ID)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.ID)
	}
	if err := a.gate(entity.CryptexRef(r.ID), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := RotateCryptex{ID: r.ID, Rotated: c.Rotated()}
	return a.commit(inv, func() error { return a.layer.SetRotated(r.ID, r.Rotated) })
}

// Tapes

func (a applier) createTape(r CreateTape) (Record, error) {
	c, ok := a.layer.Cryptex(r.Cryptex)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.Cryptex)
	}
	if err := a.gate(entity.CryptexRef(r.Cryptex), entity.LockEdit); err != nil {
		return nil, err
	}
	if err := inRange("tape", r.Index, len(c.Tapes())+1); err != nil {
		return nil, err
	}
	if err := fresh(a.layer, r.Tape.ID); err != nil {
		return nil, err
	}
	if err := a.layer.CheckNewTape(r.Cryptex, r.Tape); err != nil {
		return nil, err
	}
	return a.commit(DestroyTape{ID: r.Tape.ID}, func() error {
		_, err := a.layer.InsertTape(r.Cryptex, r.Index, r.Tape)
		return err
	})
}

func (a applier) destroyTape(r DestroyTape) (Record, error) {
	t, ok := a.layer.Tape(r.ID)
	if !ok {
		return nil, notFound(entity.KindTape, r.ID)
	}
	if err := a.gate(entity.TapeRef(r.ID), entity.LockDelete); err != nil {
		return nil, err
	}
	inv := CreateTape{Cryptex: t.Cryptex().ID(), Index: t.Index(), Tape: t.Snapshot()}
	return a.commit(inv, func() error { return a.layer.RemoveTape(r.ID) })
}

func (a applier) moveTape(r MoveTape) (Record, error) {
	t, ok := a.layer.Tape(r.ID)
	if !ok {
		return nil, notFound(entity.KindTape, r.ID)
	}
	if err := a.gate(entity.TapeRef(r.ID), entity.LockMove); err != nil {
		return nil, err
	}
	if err := inRange("tape", r.Index, len(t.Cryptex().Tapes())); err != nil {
		return nil, err
	}
	inv := MoveTape{ID: r.ID, Index: t.Index(), Shift: t.Shift()}
	return a.commit(inv, func() error { return a.layer.MoveTape(r.ID, r.Index, r.Shift) })
}

func (a applier) writeTape(r WriteTape) (Record, error) {
	t, ok := a.layer.Tape(r.Tape)
	if !ok {
		return nil, notFound(entity.KindTape, r.Tape)
	}
	if err := a.gate(entity.TapeRef(r.Tape), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := WriteTape{Tape: r.Tape, Index: r.Index}
	if v, ok := t.Write(r.Index); ok {
		inv.Value = &v
	}
	return a.commit(inv, func() error { return a.layer.SetWrite(r.Tape, r.Index, r.Value) })
}

func (a applier) setNote(r SetNote) (Record, error) {
	t, ok := a.layer.Tape(r.Tape)
	if !ok {
		return nil, notFound(entity.KindTape, r.Tape)
	}
	if err := a.gate(entity.TapeRef(r.Tape), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := SetNote{Tape: r.Tape, Index: r.Index}
	if text, ok := t.Note(r.Index); ok {
		inv.Text = &text
	}
	return a.commit(inv, func() error { return a.layer.SetNote(r.Tape, r.Index, r.Text) })
}

func (a applier) setBreakpoint(r SetBreakpoint) (Record, error) {
	t, ok := a.layer.Tape(r.Tape)
	if !ok {
		return nil, notFound(entity.KindTape, r.Tape)
	}
	if err := a.gate(entity.TapeRef(r.Tape), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := SetBreakpoint{Tape: r.Tape, Index: r.Index, Set: t.Breakpoint(r.Index)}
	return a.commit(inv, func() error { return a.layer.SetBreakpoint(r.Tape, r.Index, r.Set) })
}

func (a applier) setSequence(r SetSequence) (Record, error) {
	t, ok := a.layer.Tape(r.Tape)
	if !ok {
		return nil, notFound(entity.KindTape, r.Tape)
	}
	if err := a.gate(entity.TapeRef(r.Tape), entity.LockEdit); err != nil {
		return nil, err
	}
	if !r.Sequence.Valid() {
		return nil, model.Invariantf(model.ErrInvalidValue, "sequence %q", r.Sequence)
	}
	inv := SetSequence{Tape: r.Tape, Sequence: t.Sequence(), Pattern: t.Pattern()}
	return a.commit(inv, func() error { return a.layer.SetSequence(r.Tape, r.Sequence, r.Pattern) })
}

// Rollers

func (a applier) createRoller(r CreateRoller) (Record, error) {
	c, ok := a.layer.Cryptex(r.Cryptex)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.Cryptex)
	}
	if err := a.gate(entity.CryptexRef(r.Cryptex), entity.LockEdit); err != nil {
		return nil, err
	}
	if err := inRange("roller", r.Index, len(c.Rollers())+1); err != nil {
		return nil, err
	}
	if err := fresh(a.layer, r.Roller.ID); err != nil {
		return nil, err
	}
	if err := a.layer.CheckNewRoller(r.Cryptex, r.Roller); err != nil {
		return nil, err
	}
	return a.commit(DestroyRoller{ID: r.Roller.ID}, func() error {
		_, err := a.layer.InsertRoller(r.Cryptex, r.Index, r.Roller)
		return err
	})
}

func (a applier) destroyRoller(r DestroyRoller) (Record, error) {
	ro, ok := a.layer.Roller(r.ID)
	if !ok {
		return nil, notFound(entity.KindRoller, r.ID)
	}
	if err := a.gate(entity.RollerRef(r.ID), entity.LockDelete); err != nil {
		return nil, err
	}
	inv := CreateRoller{Cryptex: ro.Cryptex().ID(), Index: ro.Index(), Roller: ro.Snapshot()}
	return a.commit(inv, func() error { return a.layer.RemoveRoller(r.ID) })
}

func (a applier) moveRoller(r MoveRoller) (Record, error) {
	ro, ok := a.layer.Roller(r.ID)
	if !ok {
		return nil, notFound(entity.KindRoller, r.ID)
	}
	if err := a.gate(entity.RollerRef(r.ID), entity.LockMove); err != nil {
		return nil, err
	}
	if err := inRange("roller", r.Index, len(ro.Cryptex().Rollers())); err != nil {
		return nil, err
	}
	inv := MoveRoller{ID: r.ID, Index: ro.Index(), Move: ro.Move(), Hop: ro.Hop()}
	return a.commit(inv, func() error { return a.layer.MoveRoller(r.ID, r.Index, r.Move, r.Hop) })
}

func (a applier) setRollerColor(r SetRollerColor) (Record, error) {
	ro, ok := a.layer.Roller(r.ID)
	if !ok {
		return nil, notFound(entity.KindRoller, r.ID)
	}
	if err := a.gate(entity.RollerRef(r.ID), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := SetRollerColor{ID: r.ID, Color: ro.Color()}
	return a.commit(inv, func() error { return a.layer.SetRollerColor(r.ID, r.Color) })
}

// Frames

func (a applier) insertFrame(r InsertFrame) (Record, error) {
	ro, ok := a.layer.Roller(r.Roller)
	if !ok {
		return nil, notFound(entity.KindRoller, r.Roller)
	}
	if err := a.gate(entity.RollerRef(r.Roller), entity.LockEdit); err != nil {
		return nil, err
	}
	if err := inRange("frame", r.Index, ro.Len()+1); err != nil {
		return nil, err
	}
	if !r.Frame.Mode.Valid() {
		return nil, model.Invariantf(model.ErrInvalidValue, "frame mode %q", r.Frame.Mode)
	}
	inv := RemoveFrame{Roller: r.Roller, Index: r.Index}
	return a.commit(inv, func() error { return a.layer.InsertFrame(r.Roller, r.Index, r.Frame) })
}

func (a applier) removeFrame(r RemoveFrame) (Record, error) {
	ro, ok := a.layer.Roller(r.Roller)
	if !ok {
		return nil, notFound(entity.KindRoller, r.Roller)
	}
	f, ok := ro.Frame(r.Index)
	if !ok {
		return nil, inRange("frame", r.Index, ro.Len())
	}
	if err := a.gate(entity.FrameRef(r.Roller, r.Index), entity.LockDelete); err != nil {
		return nil, err
	}
	inv := InsertFrame{Roller: r.Roller, Index: r.Index, Frame: f}
	return a.commit(inv, func() error { return a.layer.RemoveFrame(r.Roller, r.Index) })
}

func (a applier) setFrameMode(r SetFrameMode) (Record, error) {
	ro, ok := a.layer.Roller(r.Roller)
	if !ok {
		return nil, notFound(entity.KindRoller, r.Roller)
	}
	f, ok := ro.Frame(r.Index)
	if !ok {
		return nil, inRange("frame", r.Index, ro.Len())
	}
	if err := a.gate(entity.FrameRef(r.Roller, r.Index), entity.LockEdit); err != nil {
		return nil, err
	}
	if !r.Mode.Valid() {
		return nil, model.Invariantf(model.ErrInvalidValue, "frame mode %q", r.Mode)
	}
	inv := SetFrameMode{Roller: r.Roller, Index: r.Index, Mode: f.Mode}
	return a.commit(inv, func() error { return a.layer.SetFrameMode(r.Roller, r.Index, r.Mode) })
}

// Labels. Labels carry no locks of their own; the owning cryptex's edit
// lock gates them.

func (a applier) createLabel(r CreateLabel) (Record, error) {
	c, ok := a.layer.Cryptex(r.Cryptex)
	if !ok {
		return nil, notFound(entity.KindCryptex, r.Cryptex)
	}
	if err := a.gate(entity.CryptexRef(r.Cryptex), entity.LockEdit); err != nil {
		return nil, err
	}
	if err := fresh(a.layer, r.Label.ID); err != nil {
		return nil, err
	}
	if _, taken := c.LabelAt(r.Label.Offset); taken {
		return nil, model.Invariantf(model.ErrOccupied, "label offset %d", r.Label.Offset)
	}
	return a.commit(DestroyLabel{ID: r.Label.ID}, func() error {
		_, err := a.layer.InsertLabel(r.Cryptex, r.Label)
		return err
	})
}

func (a applier) destroyLabel(r DestroyLabel) (Record, error) {
	lb, ok := a.layer.Label(r.ID)
	if !ok {
		return nil, notFound(entity.KindLabel, r.ID)
	}
	owner := lb.Cryptex().ID()
	if err := a.gate(entity.CryptexRef(owner), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := CreateLabel{Cryptex: owner, Label: lb.Snapshot()}
	return a.commit(inv, func() error { return a.layer.RemoveLabel(r.ID) })
}

func (a applier) moveLabel(r MoveLabel) (Record, error) {
	lb, ok := a.layer.Label(r.ID)
	if !ok {
		return nil, notFound(entity.KindLabel, r.ID)
	}
	if err := a.gate(entity.CryptexRef(lb.Cryptex().ID()), entity.LockEdit); err != nil {
		return nil, err
	}
	if other, taken := lb.Cryptex().LabelAt(r.Offset); taken && other != lb {
		return nil, model.Invariantf(model.ErrOccupied, "label offset %d", r.Offset)
	}
	inv := MoveLabel{ID: r.ID, Offset: lb.Offset()}
	return a.commit(inv, func() error { return a.layer.MoveLabel(r.ID, r.Offset) })
}

func (a applier) renameLabel(r RenameLabel) (Record, error) {
	lb, ok := a.layer.Label(r.ID)
	if !ok {
		return nil, notFound(entity.KindLabel, r.ID)
	}
	if err := a.gate(entity.CryptexRef(lb.Cryptex().ID()), entity.LockEdit); err != nil {
		return nil, err
	}
	inv := RenameLabel{ID: r.ID, Name: lb.Name()}
	return a.commit(inv, func() error { return a.layer.RenameLabel(r.ID, r.Name) })
}

// setLocks refuses any change on a layer that enforces locks.
func (a applier) setLocks(r SetLocks) (Record, error) {
	old, err := a.layer.LocksOf(r.Target)
	if err != nil {
		return nil, err
	}
	if a.gated && a.layer.EnforcesLocks() && r.Locks != old {
		return nil, fmt.Errorf("%w: %s locks cannot change while locks are enforced", model.ErrLocked, r.Target)
	}
	inv := SetLocks{Target: r.Target, Locks: old}
	return a.commit(inv, func() error { return a.layer.SetLocks(r.Target, r.Locks) })
}

// ApplyAll applies rs in order and returns the sequence that undoes all
// of them: the inverses in reverse order. On failure the records already
// applied are rolled back and the layer is left as it was.
func ApplyAll(l *model.Layer, rs []Record) ([]Record, error) {
	inverses := make([]Record, 0, len(rs))
	for i, r := range rs {
		inv, err := Apply(l, r, false)
		if err != nil {
			rollback(l, inverses)
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		inverses = append(inverses, inv)
	}
	slices.Reverse(inverses)
	return inverses, nil
}

// rollback undoes applied inverses, newest first.
func rollback(l *model.Layer, inverses []Record) {
	for i := len(inverses) - 1; i >= 0; i-- {
		_, _ = Restore(l, inverses[i])
	}
}
