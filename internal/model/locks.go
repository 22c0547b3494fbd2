package model

import (
	"fmt"

	"github.com/dshills/cryptex/internal/entity"
)

// LocksOf returns the lock flags of the referenced entity.
func (l *Layer) LocksOf(ref entity.Ref) (entity.Locks, error) {
	switch ref.Kind {
	case entity.KindCryptex:
		c, err := l.mustCryptex(ref.ID)
		if err != nil {
			return 0, err
		}
		return c.locks, nil
	case entity.KindTape:
		t, err := l.mustTape(ref.ID)
		if err != nil {
			return 0, err
		}
		return t.locks, nil
	case entity.KindRoller:
		r, err := l.mustRoller(ref.ID)
		if err != nil {
			return 0, err
		}
		return r.locks, nil
	case entity.KindFrame:
		r, err := l.mustFrame(ref.ID, ref.Frame)
		if err != nil {
			return 0, err
		}
		return r.frames[ref.Frame].Locks, nil
	default:
		return 0, invariant(ErrInvalidValue, "%s has no lock flags", ref)
	}
}

// SetLocks replaces the lock flags of the referenced entity. It is not
// gated here; the SetLocks record refuses it on layers that enforce locks.
func (l *Layer) SetLocks(ref entity.Ref, locks entity.Locks) error {
	n := Notification{Kind: LocksChanged, Subject: ref.ID, Index: -1}
	switch ref.Kind {
	case entity.KindCryptex:
		c, err := l.mustCryptex(ref.ID)
		if err != nil {
			return err
		}
		c.locks = locks
	case entity.KindTape:
		t, err := l.mustTape(ref.ID)
		if err != nil {
			return err
		}
		t.locks = locks
		n.Container = t.cryptex.id
	case entity.KindRoller:
		r, err := l.mustRoller(ref.ID)
		if err != nil {
			return err
		}
		r.locks = locks
		n.Container = r.cryptex.id
	case entity.KindFrame:
		r, err := l.mustFrame(ref.ID, ref.Frame)
		if err != nil {
			return err
		}
		r.frames[ref.Frame].Locks = locks
		n.Container = ref.ID
		n.Index = ref.Frame
	default:
		return invariant(ErrInvalidValue, "%s has no lock flags", ref)
	}
	l.notify(n)
	return nil
}

// Gate returns an ErrLocked error if the layer enforces locks and the
// referenced entity carries flag. Absent entities are invariant errors.
func (l *Layer) Gate(ref entity.Ref, flag entity.Locks) error {
	locks, err := l.LocksOf(ref)
	if err != nil {
		return err
	}
	if l.enforceLocks && locks.Has(flag) {
		return fmt.Errorf("%w: %s forbids %s", ErrLocked, ref, flag)
	}
	return nil
}

// CanDelete reports whether the referenced entity may be removed.
func (l *Layer) CanDelete(ref entity.Ref) bool {
	return l.Gate(ref, entity.LockDelete) == nil
}

// CanMove reports whether the referenced entity may be repositioned.
func (l *Layer) CanMove(ref entity.Ref) bool {
	return l.Gate(ref, entity.LockMove) == nil
}

// CanEdit reports whether the referenced entity's contents may change.
func (l *Layer) CanEdit(ref entity.Ref) bool {
	return l.Gate(ref, entity.LockEdit) == nil
}

// ColorInUse reports whether another roller of the same kind in the
// cryptex already uses color. Roller colors are unique per kind; callers
// check this before building a color change or a new roller.
func (l *Layer) ColorInUse(cryptex entity.ID, kind entity.RollerKind, color string, except entity.ID) bool {
	c, ok := l.byCryptex[cryptex]
	if !ok {
		return false
	}
	for _, r := range c.rollers {
		if r.id != except && r.kind == kind && r.color == color {
			return true
		}
	}
	return false
}
