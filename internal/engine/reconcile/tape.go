package reconcile

import (
	"slices"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/snapshot"
)

// tape reconciles the content of a surviving tape. Writes and notes are
// independent sparse mappings: each index is destroyed, transformed or
// created on its own.
func tape(from, to snapshot.Tape) []record.Record {
	var out []record.Record

	if from.Sequence != to.Sequence || !slices.Equal(from.Pattern, to.Pattern) {
		out = append(out, record.SetSequence{Tape: to.ID, Sequence: to.Sequence, Pattern: slices.Clone(to.Pattern)})
	}

	out = append(out, cells(writeMap(from.Writes), writeMap(to.Writes), func(index int, v *string) record.Record {
		return record.WriteTape{Tape: to.ID, Index: index, Value: v}
	})...)
	out = append(out, cells(noteMap(from.Notes), noteMap(to.Notes), func(index int, text *string) record.Record {
		return record.SetNote{Tape: to.ID, Index: index, Text: text}
	})...)

	fromBP := make(map[int]bool, len(from.Breakpoints))
	for _, b := range from.Breakpoints {
		fromBP[b] = true
	}
	toBP := make(map[int]bool, len(to.Breakpoints))
	for _, b := range to.Breakpoints {
		toBP[b] = true
	}
	for _, b := range from.Breakpoints {
		if !toBP[b] {
			out = append(out, record.SetBreakpoint{Tape: to.ID, Index: b, Set: false})
		}
	}
	for _, b := range to.Breakpoints {
		if !fromBP[b] {
			out = append(out, record.SetBreakpoint{Tape: to.ID, Index: b, Set: true})
		}
	}
	return out
}

// cells diffs two sparse int-keyed mappings: removals, then changes, then
// additions, each in ascending index order. A nil value means removal.
func cells(from, to map[int]string, set func(index int, v *string) record.Record) []record.Record {
	var removed, changed, added []int
	for i := range from {
		if _, ok := to[i]; !ok {
			removed = append(removed, i)
		}
	}
	for i, v := range to {
		old, ok := from[i]
		switch {
		case !ok:
			added = append(added, i)
		case old != v:
			changed = append(changed, i)
		}
	}
	slices.Sort(removed)
	slices.Sort(changed)
	slices.Sort(added)

	out := make([]record.Record, 0, len(removed)+len(changed)+len(added))
	for _, i := range removed {
		out = append(out, set(i, nil))
	}
	for _, i := range changed {
		v := to[i]
		out = append(out, set(i, &v))
	}
	for _, i := range added {
		v := to[i]
		out = append(out, set(i, &v))
	}
	return out
}

func writeMap(ws []snapshot.Write) map[int]string {
	m := make(map[int]string, len(ws))
	for _, w := range ws {
		m[w.Index] = w.Value
	}
	return m
}

func noteMap(ns []snapshot.Note) map[int]string {
	m := make(map[int]string, len(ns))
	for _, n := range ns {
		m[n.Index] = n.Text
	}
	return m
}
