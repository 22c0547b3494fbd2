package script

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/dshills/cryptex/internal/engine"
	"github.com/dshills/cryptex/internal/replay"
)

// Runner executes scripts against one engine.
type Runner struct {
	eng    *engine.Engine
	opts   []StateOption
	logger zerolog.Logger
}

// NewRunner returns a runner driving eng.
func NewRunner(eng *engine.Engine, logger zerolog.Logger, opts ...StateOption) *Runner {
	return &Runner{eng: eng, opts: opts, logger: logger}
}

// Run executes src and returns the engine's modification log. On error the
// records the script applied before failing stay applied and are part of
// the returned log.
func (r *Runner) Run(ctx context.Context, name, src string) (replay.Log, error) {
	s := NewState(r.opts...)
	defer s.Close()
	Bind(s, r.eng)

	before := r.eng.UndoCount()
	err := s.DoString(ctx, name, src)
	log := r.eng.SerializeModifications()

	ev := r.logger.Debug()
	if err != nil {
		ev = r.logger.Warn().Err(err)
	}
	ev.Str("script", name).
		Int("records", log.Len()).
		Int("steps", r.eng.UndoCount()-before).
		Msg("script finished")
	return log, err
}

// RunFile reads and runs the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) (replay.Log, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return replay.Log{}, fmt.Errorf("%w: %w", ErrScript, err)
	}
	return r.Run(ctx, path, string(src))
}
