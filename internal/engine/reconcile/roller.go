package reconcile

import (
	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/snapshot"
)

// roller reconciles a surviving roller. Frames have no id and are matched
// by position: surplus frames are removed from the end, shared positions
// are updated, missing frames are appended.
func roller(from, to snapshot.Roller) []record.Record {
	var out []record.Record

	if from.Color != to.Color {
		out = append(out, record.SetRollerColor{ID: to.ID, Color: to.Color})
	}

	shared := min(len(from.Frames), len(to.Frames))
	for i := len(from.Frames) - 1; i >= shared; i-- {
		out = append(out, record.RemoveFrame{Roller: to.ID, Index: i})
	}
	for i := range shared {
		f, t := from.Frames[i], to.Frames[i]
		if f.Mode != t.Mode {
			out = append(out, record.SetFrameMode{Roller: to.ID, Index: i, Mode: t.Mode})
		}
	}
	for i := shared; i < len(to.Frames); i++ {
		out = append(out, record.InsertFrame{Roller: to.ID, Index: i, Frame: to.Frames[i]})
	}
	return out
}
