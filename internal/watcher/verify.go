package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/level"
	"github.com/dshills/cryptex/internal/replay"
)

// Report is the outcome of re-verifying one level file.
type Report struct {
	Path    string
	Level   entity.ID
	Hash    string
	Tests   int
	Removed bool
	Err     error
	Elapsed time.Duration
}

// OK reports whether the level verified cleanly.
func (r Report) OK() bool { return r.Err == nil && !r.Removed }

// Verifier re-checks level files as they change.
type Verifier struct {
	runs   int
	logger zerolog.Logger
}

// NewVerifier returns a verifier that replays each reference solution runs
// times.
func NewVerifier(runs int, logger zerolog.Logger) *Verifier {
	return &Verifier{runs: max(runs, 1), logger: logger}
}

// Check loads the level at path, replays its reference solution for
// determinism and runs every test initialization on top.
func (v *Verifier) Check(path string) (r Report) {
	start := time.Now()
	r.Path = path
	defer func() { r.Elapsed = time.Since(start) }()

	l, err := level.Load(path)
	if err != nil {
		r.Err = err
		return r
	}
	r.Level = l.ID
	if r.Hash, err = replay.Verify(l.Base, l.Solution, v.runs); err != nil {
		r.Err = err
		return r
	}
	results, err := l.Check(level.Solution{Name: "reference", LevelID: l.ID, Log: l.Solution})
	if err != nil {
		r.Err = err
		return r
	}
	r.Tests = len(results)
	return r
}

// Run verifies every event from w until ctx is done or w is closed,
// passing each report to fn.
func (v *Verifier) Run(ctx context.Context, w *Watcher, fn func(Report)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			// Editors often save by rename, so the final state of the
			// path decides rather than the merged ops.
			var r Report
			if _, err := os.Stat(ev.Path); errors.Is(err, fs.ErrNotExist) {
				r = Report{Path: ev.Path, Removed: true}
			} else {
				r = v.Check(ev.Path)
			}
			v.log(r)
			if fn != nil {
				fn(r)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			v.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (v *Verifier) log(r Report) {
	switch {
	case r.Removed:
		v.logger.Info().Str("path", r.Path).Msg("level removed")
	case r.Err != nil:
		v.logger.Error().Str("path", r.Path).Err(r.Err).Msg("level failed verification")
	default:
		v.logger.Info().
			Str("path", r.Path).
			Stringer("level", r.Level).
			Str("hash", r.Hash).
			Int("tests", r.Tests).
			Dur("elapsed", r.Elapsed).
			Msg("level verified")
	}
}
