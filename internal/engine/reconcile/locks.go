package reconcile

import (
	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
)

// cryptexLocks returns the lock changes for a surviving cryptex and its
// surviving children. relax clears the flags each entity loses and must
// run before the content records; tighten sets the final flags and must
// run after them. An entity that only loses flags needs no tighten step.
func cryptexLocks(from, to snapshot.Cryptex) (relax, tighten []record.Record) {
	add := func(ref entity.Ref, old, cur entity.Locks) {
		if old == cur {
			return
		}
		kept := old & cur
		if kept != old {
			relax = append(relax, record.SetLocks{Target: ref, Locks: kept})
		}
		if kept != cur {
			tighten = append(tighten, record.SetLocks{Target: ref, Locks: cur})
		}
	}

	fromTapes := indexByID(from.Tapes, tapeID)
	for _, t := range to.Tapes {
		if i, ok := fromTapes[t.ID]; ok {
			add(entity.TapeRef(t.ID), from.Tapes[i].Locks, t.Locks)
		}
	}

	fromRollers := indexByID(from.Rollers, rollerID)
	for _, r := range to.Rollers {
		i, ok := fromRollers[r.ID]
		if !ok || from.Rollers[i].Kind != r.Kind {
			continue
		}
		old := from.Rollers[i]
		add(entity.RollerRef(r.ID), old.Locks, r.Locks)
		for f := range min(len(old.Frames), len(r.Frames)) {
			add(entity.FrameRef(r.ID, f), old.Frames[f].Locks, r.Frames[f].Locks)
		}
	}

	add(entity.CryptexRef(to.ID), from.Locks, to.Locks)
	return relax, tighten
}
