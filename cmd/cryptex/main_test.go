package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/replay"
	"github.com/dshills/cryptex/internal/snapshot"
)

func id(n uint64) entity.ID { return entity.IDFromInt(n) }

func fixtureLevel() level.Level {
	return level.Level{
		ID:      id(1000),
		Version: 1,
		Name:    "level.first",
		Base: snapshot.Layer{Cryptexes: []snapshot.Cryptex{{
			ID: id(100),
			Tapes: []snapshot.Tape{{
				ID: id(1), Sequence: entity.SequencePattern, Pattern: []string{"a", "b"},
			}},
		}}},
		Tests: []level.TestCase{{
			Init:     replay.Capture([]record.Record{record.WriteTape{Tape: id(1), Index: 0, Value: record.Value("z")}}),
			Expected: []string{"z"},
		}},
		Solution: replay.Capture([]record.Record{
			record.CreateTape{Cryptex: id(100), Index: 1, Tape: snapshot.Tape{ID: id(2), Sequence: entity.SequenceCustom}},
		}),
		Stars: []int{1, 5},
	}
}

func writeLevel(t *testing.T, dir string) (string, level.Level) {
	t.Helper()
	lvl := fixtureLevel()
	path := filepath.Join(dir, "level.json")
	require.NoError(t, level.Save(path, lvl))
	return path, lvl
}

// execute runs the root command with a private config and database.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.toml"),
		"--log-level", "error",
		"--db", filepath.Join(dir, "db", "solutions.db"),
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeLevel(t, dir)

	out, err := execute(t, dir, "verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "1 tests")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	out, err = execute(t, dir, "verify", path, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 levels failed")
	assert.Contains(t, out, "FAIL "+bad)
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	path, lvl := writeLevel(t, dir)
	logPath := filepath.Join(dir, "log.yaml")
	require.NoError(t, lvl.Solution.Save(logPath))

	layerPath := filepath.Join(dir, "edit.json")
	out, err := execute(t, dir, "replay", path, logPath, "-o", layerPath)
	require.NoError(t, err)
	assert.Contains(t, out, "records: 1")
	assert.Contains(t, out, "costs:   tape")

	var edit snapshot.Layer
	require.NoError(t, replay.ReadFile(layerPath, &edit))
	want, err := replay.Apply(lvl.Base, lvl.Solution)
	require.NoError(t, err)
	hash, err := replay.Hash(want)
	require.NoError(t, err)
	got, err := replay.Hash(edit)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
	assert.Contains(t, out, hash)
}

func TestReplayWritesMetrics(t *testing.T) {
	dir := t.TempDir()
	path, lvl := writeLevel(t, dir)
	logPath := filepath.Join(dir, "log.json")
	require.NoError(t, lvl.Solution.Save(logPath))

	metricsPath := filepath.Join(dir, "metrics.prom")
	_, err := execute(t, dir, "--metrics-out", metricsPath, "replay", path, logPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cryptex_records_applied_total")
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	lvl := fixtureLevel()
	edited, err := replay.Apply(lvl.Base, lvl.Solution)
	require.NoError(t, err)

	basePath := filepath.Join(dir, "base.json")
	editPath := filepath.Join(dir, "edited.json")
	require.NoError(t, replay.WriteFile(basePath, lvl.Base))
	require.NoError(t, replay.WriteFile(editPath, edited))

	logPath := filepath.Join(dir, "diff.json")
	_, err = execute(t, dir, "diff", basePath, editPath, "-o", logPath)
	require.NoError(t, err)

	log, err := replay.Load(logPath)
	require.NoError(t, err)
	out, err := replay.Apply(lvl.Base, log)
	require.NoError(t, err)
	want, err := replay.Hash(edited)
	require.NoError(t, err)
	got, err := replay.Hash(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	stdout, err := execute(t, dir, "diff", basePath, editPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "tape.create")
}

func TestScriptAndSolutions(t *testing.T) {
	dir := t.TempDir()
	path, lvl := writeLevel(t, dir)

	src := filepath.Join(dir, "solve.lua")
	require.NoError(t, os.WriteFile(src, []byte("cryptex.add_tape(100, 0, 7)\n"), 0o644))
	solPath := filepath.Join(dir, "mine.json")
	_, err := execute(t, dir, "script", path, src, "-o", solPath, "--name", "mine", "--score", "3")
	require.NoError(t, err)

	sol, err := level.LoadSolution(solPath, lvl)
	require.NoError(t, err)
	assert.Equal(t, "mine", sol.Name)
	require.NotNil(t, sol.Score)
	assert.Equal(t, 3, *sol.Score)
	assert.Equal(t, 1, sol.Log.Len())

	out, err := execute(t, dir, "solutions", "save", path, solPath)
	require.NoError(t, err)
	assert.Contains(t, out, "mine")
	assert.Contains(t, out, "stars=1")

	out, err = execute(t, dir, "solutions", "best", path)
	require.NoError(t, err)
	assert.Contains(t, out, "score=3")

	_, err = execute(t, dir, "solutions", "delete", "1000", "mine")
	require.NoError(t, err)

	out, err = execute(t, dir, "solutions", "list", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = execute(t, dir, "solutions", "delete", lvl.ID.String(), "mine")
	require.Error(t, err)
}

func TestScriptSteps(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeLevel(t, dir)

	src := filepath.Join(dir, "steps.lua")
	require.NoError(t, os.WriteFile(src, []byte(`
cryptex.add_tape(100, 0, 7)
cryptex.batch("fill", function()
	cryptex.write(7, 0, "x")
	cryptex.write(7, 1, "y")
end)
cryptex.write(1, 0, "z")
cryptex.undo()
`), 0o644))
	out, err := execute(t, dir, "script", path, src, "--steps")
	require.NoError(t, err)
	assert.Equal(t, "undo 1\ttape.create\t1\n"+
		"undo 2\tfill\t2\n"+
		"redo 1\ttape.write\t1\n"+
		"5 records\n", out)
}

func TestScriptRejectsFailingScript(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeLevel(t, dir)

	src := filepath.Join(dir, "bad.lua")
	require.NoError(t, os.WriteFile(src, []byte("cryptex.remove_tape(99)\n"), 0o644))
	_, err := execute(t, dir, "script", path, src)
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, dir, "--no-locks", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "maxEntries")
	assert.Contains(t, out, "enforce = false")
	assert.Contains(t, out, filepath.Join(dir, "db", "solutions.db"))
}

func TestInvalidFlagValue(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "--log-format", "xml", "config")
	require.Error(t, err)
}

func TestParseLevelID(t *testing.T) {
	got, err := parseLevelID("1000")
	require.NoError(t, err)
	assert.Equal(t, id(1000), got)

	got, err = parseLevelID(id(7).String())
	require.NoError(t, err)
	assert.Equal(t, id(7), got)

	_, err = parseLevelID("nope")
	assert.Error(t, err)
}
