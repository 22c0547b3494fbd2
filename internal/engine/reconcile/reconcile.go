package reconcile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// ErrInvalidInput is returned when the snapshots cannot be reconciled.
var ErrInvalidInput = errors.New("reconcile: invalid input")

// Layer returns the records that turn from into to.
func Layer(from, to snapshot.Layer) ([]record.Record, error) {
	from, to = from.Clone(), to.Clone()
	from.Normalize()
	to.Normalize()
	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	var out []record.Record
	fromIdx := indexByID(from.Cryptexes, func(c snapshot.Cryptex) entity.ID { return c.ID })
	toIdx := indexByID(to.Cryptexes, func(c snapshot.Cryptex) entity.ID { return c.ID })

	// Destroy pass.
	for _, c := range from.Cryptexes {
		if _, ok := toIdx[c.ID]; !ok {
			out = append(out, record.DestroyCryptex{ID: c.ID})
		}
	}

	// Lock flags a survivor loses are cleared before anything they gate
	// runs; flags it gains are set once everything else is done.
	var tighten []record.Record
	survivors := make([]snapshot.Cryptex, 0, len(to.Cryptexes))
	for _, c := range to.Cryptexes {
		if i, ok := fromIdx[c.ID]; ok {
			relax, tight := cryptexLocks(from.Cryptexes[i], c)
			out = append(out, relax...)
			tighten = append(tighten, tight...)
			survivors = append(survivors, c)
		}
	}

	// Transform pass: each survivor's full cycle, then the moves.
	for _, c := range survivors {
		out = append(out, cryptex(from.Cryptexes[fromIdx[c.ID]], c)...)
	}
	out = append(out, moves(from.Cryptexes, survivors,
		func(c snapshot.Cryptex) entity.ID { return c.ID },
		func(old, c snapshot.Cryptex) bool { return old.Position != c.Position },
		func(c snapshot.Cryptex, index int) record.Record {
			return record.MoveCryptex{ID: c.ID, Index: index, Position: c.Position}
		})...)
	out = append(out, tighten...)

	// Create pass.
	for i, c := range to.Cryptexes {
		if _, ok := fromIdx[c.ID]; !ok {
			out = append(out, record.CreateCryptex{Index: i, Cryptex: c})
		}
	}
	return out, nil
}

// Cryptex returns the records that turn one cryptex into another with the
// same id.
func Cryptex(from, to snapshot.Cryptex) ([]record.Record, error) {
	if from.ID != to.ID {
		return nil, fmt.Errorf("%w: cryptex ids differ (%s, %s)", ErrInvalidInput, from.ID, to.ID)
	}
	from, to = from.Clone(), to.Clone()
	from.Normalize()
	to.Normalize()
	if err := validatePair(snapshot.Layer{Cryptexes: []snapshot.Cryptex{from}}, snapshot.Layer{Cryptexes: []snapshot.Cryptex{to}}); err != nil {
		return nil, err
	}
	relax, tighten := cryptexLocks(from, to)
	out := append(relax, cryptex(from, to)...)
	return append(out, tighten...), nil
}

// cryptex reconciles the children of a surviving cryptex. Its own
// position is the parent's business.
func cryptex(from, to snapshot.Cryptex) []record.Record {
	var out []record.Record

	fromTapes := indexByID(from.Tapes, tapeID)
	toTapes := indexByID(to.Tapes, tapeID)
	fromRollers := indexByID(from.Rollers, rollerID)
	toRollers := indexByID(to.Rollers, rollerID)
	fromLabels := indexByID(from.Labels, labelID)
	toLabels := indexByID(to.Labels, labelID)

	// A roller survives only if its kind is unchanged.
	keepRoller := func(r snapshot.Roller) bool {
		i, ok := toRollers[r.ID]
		return ok && to.Rollers[i].Kind == r.Kind
	}
	// A label survives only if it is unchanged.
	keepLabel := func(lb snapshot.Label) bool {
		i, ok := toLabels[lb.ID]
		return ok && to.Labels[i] == lb
	}

	// Destroy pass: rollers first, they sit over tapes.
	for _, r := range from.Rollers {
		if !keepRoller(r) {
			out = append(out, record.DestroyRoller{ID: r.ID})
		}
	}
	for _, t := range from.Tapes {
		if _, ok := toTapes[t.ID]; !ok {
			out = append(out, record.DestroyTape{ID: t.ID})
		}
	}
	for _, lb := range from.Labels {
		if !keepLabel(lb) {
			out = append(out, record.DestroyLabel{ID: lb.ID})
		}
	}

	// Transform pass.
	var tapeSurvivors []snapshot.Tape
	for _, t := range to.Tapes {
		if i, ok := fromTapes[t.ID]; ok {
			out = append(out, tape(from.Tapes[i], t)...)
			tapeSurvivors = append(tapeSurvivors, t)
		}
	}
	out = append(out, moves(from.Tapes, tapeSurvivors, tapeID,
		func(old, t snapshot.Tape) bool { return old.Shift != t.Shift },
		func(t snapshot.Tape, index int) record.Record {
			return record.MoveTape{ID: t.ID, Index: index, Shift: t.Shift}
		})...)

	var rollerFrom []snapshot.Roller
	for _, r := range from.Rollers {
		if keepRoller(r) {
			rollerFrom = append(rollerFrom, r)
		}
	}
	var rollerSurvivors []snapshot.Roller
	for _, r := range to.Rollers {
		if i, ok := fromRollers[r.ID]; ok && from.Rollers[i].Kind == r.Kind {
			out = append(out, roller(from.Rollers[i], r)...)
			rollerSurvivors = append(rollerSurvivors, r)
		}
	}
	out = append(out, moves(rollerFrom, rollerSurvivors, rollerID,
		func(old, r snapshot.Roller) bool { return old.Move != r.Move || old.Hop != r.Hop },
		func(r snapshot.Roller, index int) record.Record {
			return record.MoveRoller{ID: r.ID, Index: index, Move: r.Move, Hop: r.Hop}
		})...)

	// Create pass, ascending target index.
	for i, t := range to.Tapes {
		if _, ok := fromTapes[t.ID]; !ok {
			out = append(out, record.CreateTape{Cryptex: to.ID, Index: i, Tape: t})
		}
	}
	for i, r := range to.Rollers {
		if j, ok := fromRollers[r.ID]; !ok || from.Rollers[j].Kind != r.Kind {
			out = append(out, record.CreateRoller{Cryptex: to.ID, Index: i, Roller: r})
		}
	}
	for _, lb := range to.Labels {
		if i, ok := fromLabels[lb.ID]; !ok || from.Labels[i] != lb {
			out = append(out, record.CreateLabel{Cryptex: to.ID, Label: lb})
		}
	}

	if from.Rotated != to.Rotated {
		out = append(out, record.RotateCryptex{ID: to.ID, Rotated: to.Rotated})
	}
	return out
}

// moves returns the moves that put survivors into target order. from is
// the source order and may include entities that were destroyed.
//
// A survivor whose rank among survivors is the same in both orders is
// never reordered. The others are walked in target order and each is
// placed just after the nearest earlier survivor already in place, so the
// unmoved ones end up at their index without being addressed. Survivors
// that keep their rank but changed a layout scalar get a move to their
// final index once the order is settled.
func moves[T any](
	from, survivors []T,
	id func(T) entity.ID,
	layoutChanged func(old, cur T) bool,
	move func(cur T, index int) record.Record,
) []record.Record {
	alive := make(map[entity.ID]bool, len(survivors))
	for _, s := range survivors {
		alive[id(s)] = true
	}

	current := make([]entity.ID, 0, len(survivors))
	old := make(map[entity.ID]T, len(survivors))
	rank := make(map[entity.ID]int, len(survivors))
	for _, f := range from {
		fid := id(f)
		if alive[fid] {
			rank[fid] = len(current)
			current = append(current, fid)
			old[fid] = f
		}
	}

	placed := make(map[entity.ID]bool, len(survivors))
	for k, s := range survivors {
		if rank[id(s)] == k {
			placed[id(s)] = true
		}
	}

	var out []record.Record
	for k, s := range survivors {
		sid := id(s)
		if placed[sid] {
			continue
		}
		at := slices.Index(current, sid)
		current = slices.Delete(current, at, at+1)
		index := 0
		for j := k - 1; j >= 0; j-- {
			if prev := id(survivors[j]); placed[prev] {
				index = slices.Index(current, prev) + 1
				break
			}
		}
		current = slices.Insert(current, index, sid)
		placed[sid] = true
		out = append(out, move(s, index))
	}

	for k, s := range survivors {
		if sid := id(s); rank[sid] == k && layoutChanged(old[sid], s) {
			out = append(out, move(s, k))
		}
	}
	return out
}

func tapeID(t snapshot.Tape) entity.ID     { return t.ID }
func rollerID(r snapshot.Roller) entity.ID { return r.ID }
func labelID(lb snapshot.Label) entity.ID  { return lb.ID }

func indexByID[T any](items []T, id func(T) entity.ID) map[entity.ID]int {
	m := make(map[entity.ID]int, len(items))
	for i, it := range items {
		m[id(it)] = i
	}
	return m
}
