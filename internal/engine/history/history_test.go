package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/snapshot"
)

func id(n uint64) entity.ID { return entity.IDFromInt(n) }

func base() snapshot.Layer {
	return snapshot.Layer{Cryptexes: []snapshot.Cryptex{{
		ID: id(1),
		Tapes: []snapshot.Tape{
			{ID: id(11), Sequence: entity.SequenceCustom},
			{ID: id(12), Sequence: entity.SequenceCustom},
		},
	}}}
}

func newTestHistory(t *testing.T, opts ...Option) *History {
	t.Helper()
	l, err := model.FromSnapshot(base())
	require.NoError(t, err)
	return NewHistory(l, opts...)
}

func tapeIDs(h *History) []entity.ID {
	c, _ := h.Layer().Cryptex(id(1))
	var ids []entity.ID
	for _, tp := range c.Tapes() {
		ids = append(ids, tp.ID())
	}
	return ids
}

func write(tape uint64, index int, v string) record.Record {
	return record.WriteTape{Tape: id(tape), Index: index, Value: record.Value(v)}
}

func TestAddTapeThenUndo(t *testing.T) {
	h := newTestHistory(t)

	err := h.ApplyAndPush(record.CreateTape{
		Cryptex: id(1), Index: 1,
		Tape: snapshot.Tape{ID: id(13), Sequence: entity.SequenceCustom},
	})
	require.NoError(t, err)
	assert.Equal(t, []entity.ID{id(11), id(13), id(12)}, tapeIDs(h))

	require.NoError(t, h.Undo())
	assert.Equal(t, []entity.ID{id(11), id(12)}, tapeIDs(h))
	assert.False(t, h.Layer().Contains(id(13)))

	require.NoError(t, h.Redo())
	assert.Equal(t, []entity.ID{id(11), id(13), id(12)}, tapeIDs(h))
}

func TestUndoRedoEmpty(t *testing.T) {
	h := newTestHistory(t)
	assert.ErrorIs(t, h.Undo(), ErrNothingToUndo)
	assert.ErrorIs(t, h.Redo(), ErrNothingToRedo)
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
}

func TestPushClearsRedo(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	require.NoError(t, h.ApplyAndPush(write(11, 0, "b")))
	require.NoError(t, h.Undo())
	assert.Equal(t, 1, h.RedoCount())

	require.NoError(t, h.ApplyAndPush(write(11, 1, "c")))
	assert.Equal(t, 0, h.RedoCount())
	assert.Equal(t, 2, h.UndoCount())
}

func TestUndoRedoSequence(t *testing.T) {
	h := newTestHistory(t)
	states := []snapshot.Layer{h.Layer().Snapshot()}

	edits := []record.Record{
		write(11, 0, "a"),
		record.MoveTape{ID: id(12), Index: 0, Shift: 3},
		record.SetNote{Tape: id(12), Index: 2, Text: record.Value("n")},
		record.DestroyTape{ID: id(11)},
	}
	for _, r := range edits {
		require.NoError(t, h.ApplyAndPush(r))
		states = append(states, h.Layer().Snapshot())
	}

	for i := len(edits) - 1; i >= 0; i-- {
		require.NoError(t, h.Undo())
		assert.Equal(t, states[i], h.Layer().Snapshot(), "after undo to %d", i)
	}
	for i := 1; i <= len(edits); i++ {
		require.NoError(t, h.Redo())
		assert.Equal(t, states[i], h.Layer().Snapshot(), "after redo to %d", i)
	}
}

func TestBatchAtomicity(t *testing.T) {
	for _, n := range []int{1, 2, 5, 20} {
		h := newTestHistory(t)
		before := h.Layer().Snapshot()

		frame := h.NewBatchFrame("many writes")
		for i := range n {
			require.NoError(t, h.ApplyAndPush(write(11, i, "x")))
		}
		assert.Equal(t, n, frame.Len())
		assert.False(t, h.CanUndo())
		assert.ErrorIs(t, h.Undo(), ErrBatchOpen)
		frame.Close()

		assert.Equal(t, 1, h.UndoCount())
		info, ok := h.PeekUndo()
		require.True(t, ok)
		assert.Equal(t, "many writes", info.Name)
		assert.Equal(t, n, info.Records)

		require.NoError(t, h.Undo())
		assert.Equal(t, before, h.Layer().Snapshot())
		assert.Equal(t, 0, h.UndoCount())
	}
}

func TestEmptyBatchAddsNothing(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	require.NoError(t, h.Undo())

	func() {
		defer h.NewBatchFrame("nothing").Close()
	}()

	assert.Equal(t, 0, h.UndoCount())
	assert.Equal(t, 1, h.RedoCount(), "an empty batch must not clear redo")
	assert.False(t, h.InBatch())
}

func TestNestedBatchFrames(t *testing.T) {
	h := newTestHistory(t)

	outer := h.NewBatchFrame("outer")
	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	inner := h.NewBatchFrame("inner")
	require.NoError(t, h.ApplyAndPush(write(11, 1, "b")))
	inner.Close()
	inner.Close()
	assert.True(t, h.InBatch())
	require.NoError(t, h.ApplyAndPush(write(11, 2, "c")))
	outer.Close()

	assert.Equal(t, 1, h.UndoCount())
	info, _ := h.PeekUndo()
	assert.Equal(t, "outer", info.Name)
	assert.Equal(t, 3, info.Records)
}

func TestBatchRollback(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.ApplyAndPush(write(11, 0, "kept")))
	before := h.Layer().Snapshot()

	outer := h.NewBatchFrame("outer")
	require.NoError(t, h.ApplyAndPush(write(12, 0, "a")))
	inner := h.NewBatchFrame("inner")
	require.NoError(t, h.ApplyAndPush(write(12, 1, "b")))
	require.NoError(t, h.ApplyAndPush(record.MoveTape{ID: id(12), Index: 0}))
	require.NoError(t, inner.Rollback())

	tape, _ := h.Layer().Tape(id(12))
	_, ok := tape.Write(1)
	assert.False(t, ok)
	assert.Equal(t, []entity.ID{id(11), id(12)}, tapeIDs(h))
	assert.Equal(t, 1, outer.Len())

	require.NoError(t, outer.Rollback())
	assert.Equal(t, before, h.Layer().Snapshot())
	assert.Equal(t, 1, h.UndoCount())
	assert.False(t, h.InBatch())
}

func TestBatchKeepsPrefixOnFailure(t *testing.T) {
	h := newTestHistory(t)

	err := transaction(h, "partial",
		write(11, 0, "a"),
		write(11, 1, "b"),
		record.DestroyTape{ID: id(99)},
		write(11, 2, "never"),
	)
	require.Error(t, err)
	assert.True(t, model.IsInvariant(err))

	tape, _ := h.Layer().Tape(id(11))
	_, ok := tape.Write(1)
	assert.True(t, ok)
	_, ok = tape.Write(2)
	assert.False(t, ok)

	assert.Equal(t, 1, h.UndoCount())
	require.NoError(t, h.Undo())
	assert.Equal(t, base(), h.Layer().Snapshot())
}

func TestLockedRecordInBatch(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.Layer().SetLocks(entity.TapeRef(id(12)), entity.LockDelete))

	err := transaction(h, "delete both", record.DestroyTape{ID: id(11)}, record.DestroyTape{ID: id(12)})
	assert.ErrorIs(t, err, model.ErrLocked)
	assert.Equal(t, []entity.ID{id(12)}, tapeIDs(h))

	// Undo restores the deleted tape even though the layer enforces locks.
	require.NoError(t, h.Undo())
	assert.Equal(t, []entity.ID{id(11), id(12)}, tapeIDs(h))
}

func TestUndoFailureRestoresEntry(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, transaction(h, "two", write(11, 0, "a"), write(12, 0, "b")))

	// Desynchronize: remove tape 12 behind the log's back.
	require.NoError(t, h.Layer().RemoveTape(id(12)))
	before := h.Layer().Snapshot()

	err := h.Undo()
	require.Error(t, err)
	assert.True(t, model.IsInvariant(err))
	assert.Equal(t, 1, h.UndoCount())
	assert.Equal(t, before, h.Layer().Snapshot())
}

func TestMaxEntries(t *testing.T) {
	h := newTestHistory(t, WithMaxEntries(3))
	for i := range 5 {
		require.NoError(t, h.ApplyAndPush(write(11, i, "v")))
	}
	assert.Equal(t, 3, h.UndoCount())
	assert.Equal(t, 3, h.MaxEntries())

	h = newTestHistory(t, WithMaxEntries(0))
	assert.Equal(t, DefaultMaxEntries, h.MaxEntries())
}

func TestCheckpoint(t *testing.T) {
	tests := []struct {
		name string
		max  int
		// before and after are the steps pushed around the checkpoint;
		// undone is how many are undone before returning to it.
		before, after, undone int
		wantUndo, wantRedo    int
	}{
		{name: "steps after the checkpoint", before: 1, after: 2, wantUndo: 1, wantRedo: 2},
		{name: "empty stack", before: 0, after: 3, wantUndo: 0, wantRedo: 3},
		{name: "nothing since", before: 2, after: 0, wantUndo: 2, wantRedo: 0},
		{name: "checkpoint step trimmed", max: 3, before: 2, after: 3, wantUndo: 0, wantRedo: 3},
		{name: "stack trimmed below the checkpoint", max: 3, before: 2, after: 2, wantUndo: 1, wantRedo: 2},
		{name: "already undone past it", before: 2, after: 1, undone: 2, wantUndo: 1, wantRedo: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHistory(t, WithMaxEntries(tt.max))
			n := 0
			push := func(count int) {
				for range count {
					require.NoError(t, h.ApplyAndPush(write(11, n, "v")))
					n++
				}
			}
			push(tt.before)
			cp := h.CreateCheckpoint()
			push(tt.after)
			for range tt.undone {
				require.NoError(t, h.Undo())
			}

			require.NoError(t, h.UndoToCheckpoint(cp))
			assert.Equal(t, tt.wantUndo, h.UndoCount())
			assert.Equal(t, tt.wantRedo, h.RedoCount())
		})
	}
}

// transaction applies records inside one frame, stopping at the first
// failure.
func transaction(h *History, name string, records ...record.Record) error {
	frame := h.NewBatchFrame(name)
	defer frame.Close()
	for _, r := range records {
		if err := h.ApplyAndPush(r); err != nil {
			return err
		}
	}
	return nil
}

func TestJournalReplaysToCurrentState(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	require.NoError(t, transaction(h, "batch",
		record.MoveTape{ID: id(12), Index: 0, Shift: 1},
		record.SetBreakpoint{Tape: id(11), Index: 4, Set: true},
	))
	require.NoError(t, h.Undo())
	require.NoError(t, h.ApplyAndPush(record.DestroyTape{ID: id(12)}))
	require.NoError(t, h.Undo())
	require.NoError(t, h.Redo())

	fresh, err := model.FromSnapshot(base())
	require.NoError(t, err)
	_, err = record.ApplyAll(fresh, h.Journal())
	require.NoError(t, err)
	assert.Equal(t, h.Layer().Snapshot(), fresh.Snapshot())
}

func TestClear(t *testing.T) {
	h := newTestHistory(t)
	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	require.NoError(t, h.ApplyAndPush(write(11, 1, "b")))
	require.NoError(t, h.Undo())
	frame := h.NewBatchFrame("dangling")
	after := h.Layer().Snapshot()

	h.Clear()
	frame.Close()

	assert.Equal(t, 0, h.UndoCount())
	assert.Equal(t, 0, h.RedoCount())
	assert.Empty(t, h.Journal())
	assert.False(t, h.InBatch())
	assert.Equal(t, after, h.Layer().Snapshot())
}

func TestInfoAndCheckpoint(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newTestHistory(t, WithClock(func() time.Time { return now }))

	require.NoError(t, h.ApplyAndPush(write(11, 0, "a")))
	cp := h.CreateCheckpoint()
	require.NoError(t, h.ApplyAndPush(write(11, 1, "b")))
	require.NoError(t, h.ApplyAndPush(write(11, 2, "c")))

	infos := h.UndoInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, string(record.KindWriteTape), infos[0].Name)
	assert.Equal(t, now, infos[0].Timestamp)

	require.NoError(t, h.UndoToCheckpoint(cp))
	assert.Equal(t, 1, h.UndoCount())
	assert.Len(t, h.RedoInfo(), 2)
	redo, ok := h.PeekRedo()
	require.True(t, ok)
	assert.Equal(t, 1, redo.Records)
}
