package model

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/snapshot"
	"github.com/dshills/cryptex/internal/snapshot/snapshottest"
)

func id(n uint64) entity.ID { return entity.IDFromInt(n) }

func strp(s string) *string { return &s }

// fixture: one cryptex (1) with tapes 10, 11, a roller 20 with two frames
// and a label 30 at offset 3.
func fixture() snapshot.Layer {
	return snapshot.Layer{Cryptexes: []snapshot.Cryptex{{
		ID:       id(1),
		Position: entity.Vec2{X: 2, Y: 3},
		Tapes: []snapshot.Tape{
			{ID: id(10), Sequence: entity.SequencePattern, Pattern: []string{"a", "b"},
				Writes: []snapshot.Write{{Index: 0, Value: "x"}}},
			{ID: id(11), Sequence: entity.SequenceCustom, Locks: entity.LockDelete},
		},
		Rollers: []snapshot.Roller{{
			ID: id(20), Kind: entity.RollerProgrammable, Color: "red",
			Frames: []snapshot.Frame{{Mode: entity.FrameRead}, {Mode: entity.FrameReadWrite}},
		}},
		Labels: []snapshot.Label{{ID: id(30), Offset: 3, Name: "x"}},
	}}}
}

func TestRoundTrip(t *testing.T) {
	s := fixture()
	l, err := FromSnapshot(s)
	require.NoError(t, err)
	assert.Equal(t, s, l.Snapshot())

	tape, ok := l.Tape(id(10))
	require.True(t, ok)
	assert.Equal(t, 0, tape.Index())
	assert.Equal(t, "x", tape.Value(0))
	assert.Equal(t, "b", tape.Value(1))
	assert.Equal(t, "b", tape.Value(-1))
	assert.Same(t, tape.Cryptex(), mustCryptex(t, l, id(1)))
}

func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("deserialize(serialize(l)) == l", prop.ForAll(
		func(s snapshot.Layer) bool {
			l, err := FromSnapshot(s)
			if err != nil {
				return false
			}
			back, err := FromSnapshot(l.Snapshot())
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(s, l.Snapshot()) &&
				assert.ObjectsAreEqual(s, back.Snapshot())
		},
		snapshottest.LayerGen(),
	))

	properties.TestingRun(t)
}

func TestFromSnapshotRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*snapshot.Layer)
	}{
		{"duplicate tape id", func(s *snapshot.Layer) { s.Cryptexes[0].Tapes[1].ID = id(10) }},
		{"tape id reused by roller", func(s *snapshot.Layer) { s.Cryptexes[0].Rollers[0].ID = id(11) }},
		{"nil id", func(s *snapshot.Layer) { s.Cryptexes[0].Labels[0].ID = entity.Nil }},
		{"unknown roller kind", func(s *snapshot.Layer) { s.Cryptexes[0].Rollers[0].Kind = "mystery" }},
		{"unknown frame mode", func(s *snapshot.Layer) { s.Cryptexes[0].Rollers[0].Frames[0].Mode = "w" }},
		{"duplicate write", func(s *snapshot.Layer) {
			s.Cryptexes[0].Tapes[0].Writes = append(s.Cryptexes[0].Tapes[0].Writes, snapshot.Write{Index: 0, Value: "y"})
		}},
		{"label offset clash", func(s *snapshot.Layer) {
			s.Cryptexes[0].Labels = append(s.Cryptexes[0].Labels, snapshot.Label{ID: id(31), Offset: 3})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fixture()
			tt.mutate(&s)
			l, err := FromSnapshot(s)
			require.Error(t, err)
			assert.Nil(t, l)
			assert.True(t, IsInvariant(err))
			assert.ErrorIs(t, err, snapshot.ErrInvalid)
		})
	}
}

func TestTapeMutations(t *testing.T) {
	rec := &Recorder{}
	l, err := FromSnapshot(fixture(), WithNotifier(rec))
	require.NoError(t, err)

	_, err = l.InsertTape(id(1), 1, snapshot.Tape{ID: id(12), Sequence: entity.SequenceCustom})
	require.NoError(t, err)
	assert.Equal(t, []entity.ID{id(10), id(12), id(11)}, tapeIDs(mustCryptex(t, l, id(1))))

	require.NoError(t, l.MoveTape(id(10), 2, 4))
	assert.Equal(t, []entity.ID{id(12), id(11), id(10)}, tapeIDs(mustCryptex(t, l, id(1))))
	tape, _ := l.Tape(id(10))
	assert.Equal(t, 4, tape.Shift())

	require.NoError(t, l.SetWrite(id(10), 5, strp("q")))
	require.NoError(t, l.SetWrite(id(10), 0, nil))
	require.NoError(t, l.SetNote(id(10), 5, strp("hi")))
	require.NoError(t, l.SetBreakpoint(id(10), 2, true))
	require.NoError(t, l.RemoveTape(id(12)))

	_, gone := l.Tape(id(12))
	assert.False(t, gone)
	v, ok := tape.Write(5)
	assert.True(t, ok)
	assert.Equal(t, "q", v)
	_, ok = tape.Write(0)
	assert.False(t, ok)
	assert.True(t, tape.Breakpoint(2))

	assert.Equal(t, []NotificationKind{
		TapeAdded, TapeMoved, TapeChanged, TapeChanged, TapeChanged, TapeChanged, TapeRemoved,
	}, rec.Kinds())
	assert.Equal(t, 0, rec.Notifications[1].From)
	assert.Equal(t, 2, rec.Notifications[1].Index)
}

func TestMutatorErrorsLeaveGraphUnchanged(t *testing.T) {
	l, err := FromSnapshot(fixture())
	require.NoError(t, err)
	before := l.Snapshot()

	tests := []struct {
		name string
		fn   func() error
		want error
	}{
		{"remove missing tape", func() error { return l.RemoveTape(id(99)) }, ErrNotFound},
		{"insert tape out of range", func() error {
			_, err := l.InsertTape(id(1), 5, snapshot.Tape{ID: id(50), Sequence: entity.SequenceCustom})
			return err
		}, ErrOutOfRange},
		{"insert duplicate tape", func() error {
			_, err := l.InsertTape(id(1), 0, snapshot.Tape{ID: id(20), Sequence: entity.SequenceCustom})
			return err
		}, ErrDuplicateID},
		{"move tape out of range", func() error { return l.MoveTape(id(10), 2, 0) }, ErrOutOfRange},
		{"remove missing frame", func() error { return l.RemoveFrame(id(20), 2) }, ErrOutOfRange},
		{"label clash", func() error {
			_, err := l.InsertLabel(id(1), snapshot.Label{ID: id(31), Offset: 3})
			return err
		}, ErrOccupied},
		{"bad sequence", func() error { return l.SetSequence(id(10), "loop", nil) }, ErrInvalidValue},
		{"duplicate cryptex", func() error {
			_, err := l.InsertCryptex(0, snapshot.Cryptex{ID: id(2), Tapes: []snapshot.Tape{{ID: id(10), Sequence: entity.SequenceCustom}}})
			return err
		}, ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsInvariant(err))
			assert.Equal(t, before, l.Snapshot())
		})
	}
}

func TestCryptexLifecycle(t *testing.T) {
	l, err := FromSnapshot(fixture())
	require.NoError(t, err)

	c2 := snapshot.Cryptex{ID: id(2), Tapes: []snapshot.Tape{{ID: id(40), Sequence: entity.SequenceCustom}}}
	_, err = l.InsertCryptex(0, c2)
	require.NoError(t, err)
	assert.Equal(t, 0, l.CryptexIndex(id(2)))
	assert.True(t, l.Contains(id(40)))

	require.NoError(t, l.MoveCryptex(id(2), 1, entity.Vec2{X: 9}))
	assert.Equal(t, 1, l.CryptexIndex(id(2)))
	c, _ := l.Cryptex(id(2))
	assert.Equal(t, entity.Vec2{X: 9}, c.Position())

	require.NoError(t, l.RemoveCryptex(id(2)))
	assert.False(t, l.Contains(id(40)))
	assert.Equal(t, fixture(), l.Snapshot())
}

func TestRollersFramesLabels(t *testing.T) {
	l, err := FromSnapshot(fixture())
	require.NoError(t, err)

	require.NoError(t, l.InsertFrame(id(20), 0, Frame{Mode: entity.FrameReadWrite}))
	require.NoError(t, l.SetFrameMode(id(20), 1, entity.FrameReadWrite))
	require.NoError(t, l.RemoveFrame(id(20), 2))
	r, _ := l.Roller(id(20))
	assert.Equal(t, []Frame{{Mode: entity.FrameReadWrite}, {Mode: entity.FrameReadWrite}}, r.Frames())

	require.NoError(t, l.SetRollerColor(id(20), "blue"))
	assert.Equal(t, "blue", r.Color())
	require.NoError(t, l.MoveRoller(id(20), 0, 3, 1))
	assert.Equal(t, 3, r.Move())
	assert.Equal(t, 1, r.Hop())

	require.NoError(t, l.MoveLabel(id(30), 8))
	require.NoError(t, l.RenameLabel(id(30), "y"))
	c := mustCryptex(t, l, id(1))
	lb, ok := c.LabelAt(8)
	require.True(t, ok)
	assert.Equal(t, "y", lb.Name())
	_, ok = c.LabelAt(3)
	assert.False(t, ok)

	require.NoError(t, l.RemoveLabel(id(30)))
	assert.Empty(t, c.Labels())
}

func TestLocks(t *testing.T) {
	l, err := FromSnapshot(fixture())
	require.NoError(t, err)

	assert.False(t, l.CanDelete(entity.TapeRef(id(11))))
	assert.True(t, l.CanMove(entity.TapeRef(id(11))))
	assert.True(t, l.CanDelete(entity.TapeRef(id(10))))
	assert.False(t, l.CanEdit(entity.TapeRef(id(99))))

	err = l.Gate(entity.TapeRef(id(11)), entity.LockDelete)
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, IsInvariant(err))

	require.NoError(t, l.SetLocks(entity.FrameRef(id(20), 1), entity.LockEdit))
	assert.False(t, l.CanEdit(entity.FrameRef(id(20), 1)))

	_, err = l.LocksOf(entity.Ref{Kind: entity.KindLabel, ID: id(30)})
	assert.ErrorIs(t, err, ErrInvalidValue)

	l.SetEnforceLocks(false)
	assert.True(t, l.CanDelete(entity.TapeRef(id(11))))
}

func TestColorInUse(t *testing.T) {
	l, err := FromSnapshot(fixture())
	require.NoError(t, err)

	assert.True(t, l.ColorInUse(id(1), entity.RollerProgrammable, "red", entity.Nil))
	assert.False(t, l.ColorInUse(id(1), entity.RollerProgrammable, "red", id(20)))
	assert.False(t, l.ColorInUse(id(1), entity.RollerFixed, "red", entity.Nil))
}

func mustCryptex(t *testing.T, l *Layer, cid entity.ID) *Cryptex {
	t.Helper()
	c, ok := l.Cryptex(cid)
	require.True(t, ok)
	return c
}

func tapeIDs(c *Cryptex) []entity.ID {
	var ids []entity.ID
	for _, t := range c.Tapes() {
		ids = append(ids, t.ID())
	}
	return ids
}
