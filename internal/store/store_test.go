package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/replay"
	"github.com/dshills/cryptex/internal/snapshot"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLevel() level.Level {
	return level.Level{
		ID: entity.IDFromInt(1000),
		Base: snapshot.Layer{Cryptexes: []snapshot.Cryptex{{
			ID:    entity.IDFromInt(100),
			Tapes: []snapshot.Tape{{ID: entity.IDFromInt(1), Sequence: entity.SequenceCustom, Locks: entity.LockDelete}},
		}}},
	}
}

func solution(name string, score *int, tapes ...uint64) level.Solution {
	var rs []record.Record
	for i, n := range tapes {
		rs = append(rs, record.CreateTape{
			Cryptex: entity.IDFromInt(100),
			Index:   i,
			Tape:    snapshot.Tape{ID: entity.IDFromInt(n), Sequence: entity.SequenceCustom},
		})
	}
	return level.Solution{Name: name, LevelID: entity.IDFromInt(1000), Score: score, Log: replay.Capture(rs)}
}

func score(n int) *int { return &n }

func TestSaveAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	lvl := testLevel()
	sol := solution("first", score(7), 2, 3)

	saved, err := s.Save(ctx, lvl, sol)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Hash)

	got, err := s.Get(ctx, lvl.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, sol, got.Solution)
	assert.Equal(t, saved.Hash, got.Hash)
	assert.WithinDuration(t, saved.SavedAt, got.SavedAt, time.Millisecond)

	want, err := replay.Apply(lvl.Base, sol.Log)
	require.NoError(t, err)
	h, err := replay.Hash(want)
	require.NoError(t, err)
	assert.Equal(t, h, got.Hash)

	_, err = s.Get(ctx, lvl.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplaces(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	lvl := testLevel()

	_, err := s.Save(ctx, lvl, solution("mine", score(9), 2))
	require.NoError(t, err)
	_, err = s.Save(ctx, lvl, solution("mine", score(4), 2, 3))
	require.NoError(t, err)

	entries, err := s.List(ctx, lvl.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, *entries[0].Solution.Score)
	assert.Equal(t, 2, entries[0].Solution.Log.Len())
}

func TestSaveRejectsInvalid(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	lvl := testLevel()

	wrong := solution("other", nil)
	wrong.LevelID = entity.IDFromInt(5)
	_, err := s.Save(ctx, lvl, wrong)
	assert.ErrorIs(t, err, level.ErrWrongLevel)

	locked := solution("locked", nil)
	locked.Log = replay.Capture([]record.Record{record.DestroyTape{ID: entity.IDFromInt(1)}})
	_, err = s.Save(ctx, lvl, locked)
	assert.ErrorIs(t, err, level.ErrInvalid)

	entries, err := s.List(ctx, lvl.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListOrderAndBest(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	lvl := testLevel()

	for _, sol := range []level.Solution{
		solution("c", score(12), 2),
		solution("unscored", nil, 3),
		solution("a", score(5), 4),
		solution("b", score(5), 5),
	} {
		_, err := s.Save(ctx, lvl, sol)
		require.NoError(t, err)
	}

	entries, err := s.List(ctx, lvl.ID)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Solution.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "unscored"}, names)

	best, err := s.Best(ctx, lvl.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", best.Solution.Name)

	_, err = s.Best(ctx, entity.IDFromInt(77))
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := s.List(ctx, entity.IDFromInt(77))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	lvl := testLevel()

	_, err := s.Save(ctx, lvl, solution("gone", score(1), 2))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, lvl.ID, "gone"))

	_, err = s.Get(ctx, lvl.ID, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, lvl.ID, "gone"), ErrNotFound)
}

func TestFileBackedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "solutions.db")
	lvl := testLevel()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Save(ctx, lvl, solution("kept", score(3), 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, lvl.ID, "kept")
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Solution.Score)
}
