package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/dshills/cryptex/internal/engine/history"
	"github.com/dshills/cryptex/internal/engine/reconcile"
	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/event"
	"github.com/dshills/cryptex/internal/metrics"
	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/replay"
	"github.com/dshills/cryptex/internal/snapshot"
)

// View selects the visible layer.
type View int

const (
	ViewEdit View = iota
	ViewBase
)

func (v View) String() string {
	if v == ViewBase {
		return "base"
	}
	return "edit"
}

// Engine is the workspace: a base layer, an edit layer and the edit log
// over the edit layer.
type Engine struct {
	mu sync.RWMutex

	// Core components
	base    *model.Layer
	edit    *model.Layer
	history *history.History
	view    View

	// Collaborators
	bus     event.Bus
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// Configuration
	maxHistory   int
	enforceLocks bool

	// Events raised while the lock is held, published after it is released.
	pending []any
}

// New creates an Engine whose base and edit layers are both built from
// base.
func New(base snapshot.Layer, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:       zerolog.Nop(),
		maxHistory:   DefaultMaxHistory,
		enforceLocks: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	b, edit, err := e.buildLayers(base)
	if err != nil {
		return nil, err
	}
	e.install(b, edit)
	return e, nil
}

// buildLayers deserializes the base layer and a fresh edit layer from s.
func (e *Engine) buildLayers(s snapshot.Layer) (*model.Layer, *model.Layer, error) {
	base, err := model.FromSnapshot(s, model.WithoutLocks())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	opts := []model.Option{model.WithNotifier(model.NotifierFunc(e.notify))}
	if !e.enforceLocks {
		opts = append(opts, model.WithoutLocks())
	}
	edit, err := model.FromSnapshot(s, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return base, edit, nil
}

func (e *Engine) install(base, edit *model.Layer) {
	e.base = base
	e.edit = edit
	e.history = history.NewHistory(edit,
		history.WithMaxEntries(e.maxHistory),
		history.WithLogger(e.logger.With().Str("component", "history").Logger()),
	)
}

// ============================================================================
// Events
// ============================================================================

// notify is the edit layer's notifier. It runs with the lock held.
func (e *Engine) notify(n model.Notification) {
	if e.bus == nil {
		return
	}
	e.pending = append(e.pending, event.NewEvent(EditTopic(n.Kind), n, EventSource))
}

// raise queues an engine event. Call with the lock held.
func (e *Engine) raise(ev any) {
	if e.bus == nil {
		return
	}
	e.pending = append(e.pending, ev)
}

// unlock releases the write lock and publishes the queued events, tagged
// with one correlation id.
func (e *Engine) unlock() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	op := xid.New().String()
	for _, ev := range pending {
		if err := e.bus.Publish(context.Background(), correlate(ev, op)); err != nil {
			e.logger.Warn().Err(err).Msg("notification handler failed")
		}
	}
}

func correlate(ev any, op string) any {
	switch ev := ev.(type) {
	case event.Event[model.Notification]:
		return ev.WithCorrelation(op)
	case event.Event[Step]:
		return ev.WithCorrelation(op)
	case event.Event[ViewChanged]:
		return ev.WithCorrelation(op)
	}
	return ev
}

// ============================================================================
// Modification Operations
// ============================================================================

// ApplyModificationRecord applies r to the edit layer and records it for
// undo. A locked target returns an error wrapping model.ErrLocked and
// leaves the layer unchanged.
func (e *Engine) ApplyModificationRecord(r record.Record) error {
	e.mu.Lock()
	defer e.unlock()

	return e.applyLocked(r)
}

func (e *Engine) applyLocked(r record.Record) error {
	err := e.history.ApplyAndPush(r)
	e.metrics.ObserveApply(kindOf(r), err)
	if err != nil {
		e.logFailure(err, r)
	}
	return err
}

// ApplyModificationBatchRecord applies rs as one undo step. If a record
// fails, the records before it stay applied and form the step.
func (e *Engine) ApplyModificationBatchRecord(name string, rs []record.Record) error {
	e.mu.Lock()
	defer e.unlock()

	frame := e.history.NewBatchFrame(name)
	defer frame.Close()
	for i, r := range rs {
		if err := e.applyLocked(r); err != nil {
			return fmt.Errorf("%s: record %d: %w", name, i, err)
		}
	}
	return nil
}

// CanApply reports whether r would apply to the edit layer, without
// applying it.
func (e *Engine) CanApply(r record.Record) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return record.CanApply(e.edit, r)
}

// BatchFrame is an open frame on the engine's edit log.
type BatchFrame struct {
	e     *Engine
	frame *history.BatchFrame
}

// NewBatchFrame opens a frame on the edit log. Records applied until the
// frame is closed form one undo step.
func (e *Engine) NewBatchFrame(name string) *BatchFrame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &BatchFrame{e: e, frame: e.history.NewBatchFrame(name)}
}

// Close commits the frame. Safe to call more than once.
func (f *BatchFrame) Close() {
	f.e.mu.Lock()
	defer f.e.unlock()
	f.frame.Close()
}

// Rollback reverts the records applied since the frame opened and closes
// it.
func (f *BatchFrame) Rollback() error {
	f.e.mu.Lock()
	defer f.e.unlock()
	return f.frame.Rollback()
}

// Len returns the number of records applied in the frame so far.
func (f *BatchFrame) Len() int {
	f.e.mu.RLock()
	defer f.e.mu.RUnlock()
	return f.frame.Len()
}

// Batch runs fn inside a frame named name. If fn fails the frame is rolled
// back and fn's error returned; otherwise everything fn applied is one
// undo step.
func (e *Engine) Batch(name string, fn func() error) error {
	frame := e.NewBatchFrame(name)
	if err := fn(); err != nil {
		if rerr := frame.Rollback(); rerr != nil {
			e.logger.Error().Stack().Err(rerr).Str("batch", name).Msg("batch rollback failed")
			return errors.Join(err, rerr)
		}
		return err
	}
	frame.Close()
	return nil
}

// UndoModification reverts the most recent step.
func (e *Engine) UndoModification() error {
	e.mu.Lock()
	defer e.unlock()

	return e.undoLocked()
}

func (e *Engine) undoLocked() error {
	info, _ := e.history.PeekUndo()
	err := e.history.Undo()
	e.metrics.ObserveStep("undo", err)
	if err != nil {
		return err
	}
	e.raise(event.NewEvent(TopicUndo, Step{Name: info.Name, Records: info.Records}, EventSource))
	return nil
}

// RedoModification re-applies the most recently undone step.
func (e *Engine) RedoModification() error {
	e.mu.Lock()
	defer e.unlock()

	info, _ := e.history.PeekRedo()
	err := e.history.Redo()
	e.metrics.ObserveStep("redo", err)
	if err != nil {
		return err
	}
	e.raise(event.NewEvent(TopicRedo, Step{Name: info.Name, Records: info.Records}, EventSource))
	return nil
}

// Checkpoint marks the current position of the edit log.
func (e *Engine) Checkpoint() history.Checkpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CreateCheckpoint()
}

// UndoToCheckpoint undoes every step taken since cp, one undo event per
// step. It stops at the first failing step.
func (e *Engine) UndoToCheckpoint(cp history.Checkpoint) error {
	e.mu.Lock()
	defer e.unlock()

	for range e.history.StepsSince(cp) {
		if err := e.undoLocked(); err != nil {
			return err
		}
	}
	return nil
}

// UndoSteps describes the undo steps, oldest first.
func (e *Engine) UndoSteps() []history.StepInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.UndoInfo()
}

// RedoSteps describes the redo steps, oldest first.
func (e *Engine) RedoSteps() []history.StepInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.RedoInfo()
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanUndo()
}

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.CanRedo()
}

// UndoCount returns the number of available undo steps.
func (e *Engine) UndoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.UndoCount()
}

// RedoCount returns the number of available redo steps.
func (e *Engine) RedoCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.RedoCount()
}

// ============================================================================
// Modification Log
// ============================================================================

// SerializeModifications captures every record applied since the log was
// last cleared, undos and redos included, as a replay log.
func (e *Engine) SerializeModifications() replay.Log {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return replay.Capture(e.history.Journal())
}

// ClearModificationLog discards the journal and the undo and redo stacks.
// The edit layer is not touched.
func (e *Engine) ClearModificationLog() {
	e.mu.Lock()
	defer e.unlock()
	e.history.Clear()
	e.raise(event.NewEvent(TopicLogCleared, Step{Name: "clear"}, EventSource))
}

// LoadReplay applies log to the edit layer as one undo step. The log is
// checked against a scratch copy first; on failure the edit layer and the
// edit log are left as they were.
func (e *Engine) LoadReplay(log replay.Log) error {
	e.mu.Lock()
	defer e.unlock()

	if err := log.Check(); err != nil {
		return err
	}
	scratch, err := model.FromSnapshot(e.edit.Snapshot(), e.layerOptions()...)
	if err != nil {
		return model.Invariantf(model.ErrInvariant, "edit layer does not round trip: %v", err)
	}
	if err := replay.ApplyTo(scratch, log); err != nil {
		e.logger.Debug().Err(err).Str("session", log.Session).Msg("replay rejected")
		return err
	}

	frame := e.history.NewBatchFrame("replay")
	for i, r := range log.Records {
		if err := e.applyLocked(r); err != nil {
			if rerr := frame.Rollback(); rerr != nil {
				e.logger.Error().Stack().Err(rerr).Msg("replay rollback failed")
			}
			return fmt.Errorf("%w: record %d: %w", replay.ErrReplay, i, err)
		}
	}
	frame.Close()

	e.logger.Debug().Str("session", log.Session).Int("records", log.Len()).Msg("replay loaded")
	e.raise(event.NewEvent(TopicReplayLoaded, Step{Name: "replay", Records: log.Len()}, EventSource))
	return nil
}

func (e *Engine) layerOptions() []model.Option {
	if e.edit.EnforcesLocks() {
		return nil
	}
	return []model.Option{model.WithoutLocks()}
}

// ============================================================================
// Layers
// ============================================================================

// SerializeBaseLayer returns a snapshot of the base layer.
func (e *Engine) SerializeBaseLayer() snapshot.Layer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.base.Snapshot()
}

// SerializeEditLayer returns a snapshot of the edit layer.
func (e *Engine) SerializeEditLayer() snapshot.Layer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.edit.Snapshot()
}

// LoadBaseLayer replaces the base layer with s, resets the edit layer to a
// copy of it and clears the edit log. On failure nothing changes.
func (e *Engine) LoadBaseLayer(s snapshot.Layer) error {
	e.mu.Lock()
	defer e.unlock()

	base, edit, err := e.buildLayers(s)
	if err != nil {
		e.logger.Debug().Err(err).Msg("base layer rejected")
		return err
	}
	e.install(base, edit)
	e.logger.Debug().Int("cryptexes", base.Len()).Msg("base layer loaded")
	e.raise(event.NewEvent(TopicBaseLoaded, Step{Name: "load"}, EventSource))
	return nil
}

// RevertToBase reconciles the edit layer back to the base layer as one
// undo step. Locks do not apply: the base layer is authored content.
func (e *Engine) RevertToBase() error {
	e.mu.Lock()
	defer e.unlock()

	rs, err := reconcile.Layer(e.edit.Snapshot(), e.base.Snapshot())
	if err != nil {
		return model.Invariantf(model.ErrInvariant, "revert: %v", err)
	}
	e.metrics.ObserveReconcile(len(rs))
	if len(rs) == 0 {
		return nil
	}

	enforce := e.edit.EnforcesLocks()
	e.edit.SetEnforceLocks(false)
	defer e.edit.SetEnforceLocks(enforce)

	frame := e.history.NewBatchFrame("revert")
	for _, r := range rs {
		if err := e.applyLocked(r); err != nil {
			if rerr := frame.Rollback(); rerr != nil {
				e.logger.Error().Stack().Err(rerr).Msg("revert rollback failed")
			}
			return err
		}
	}
	frame.Close()

	e.logger.Debug().Int("records", len(rs)).Msg("reverted to base")
	e.raise(event.NewEvent(TopicReverted, Step{Name: "revert", Records: len(rs)}, EventSource))
	return nil
}

// ShowBase makes the base layer visible.
func (e *Engine) ShowBase() { e.setView(ViewBase) }

// ShowEdit makes the edit layer visible.
func (e *Engine) ShowEdit() { e.setView(ViewEdit) }

func (e *Engine) setView(v View) {
	e.mu.Lock()
	defer e.unlock()
	if e.view == v {
		return
	}
	e.view = v
	e.raise(event.NewEvent(TopicViewChanged, ViewChanged{View: v}, EventSource))
}

// View returns which layer is visible.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view
}

// Visible returns the visible layer. Callers must not mutate it.
func (e *Engine) Visible() *model.Layer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.view == ViewBase {
		return e.base
	}
	return e.edit
}

// Layer returns the edit layer. Callers must not mutate it.
func (e *Engine) Layer() *model.Layer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.edit
}

// Base returns the base layer. Callers must not mutate it.
func (e *Engine) Base() *model.Layer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.base
}

// History returns the edit log.
func (e *Engine) History() *history.History {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history
}

// ============================================================================
// Costs
// ============================================================================

// Costs returns the scoring categories the edit layer consumes relative to
// the base layer.
func (e *Engine) Costs() (record.CostSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rs, err := reconcile.Layer(e.base.Snapshot(), e.edit.Snapshot())
	if err != nil {
		return record.CostNone, err
	}
	return record.CostsOf(e.base, rs), nil
}

// RecordCosts returns the categories r would consume against the edit
// layer.
func (e *Engine) RecordCosts(r record.Record) record.CostSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return record.Costs(e.edit, r)
}

// ============================================================================
// Helpers
// ============================================================================

func kindOf(r record.Record) string {
	if r == nil {
		return ""
	}
	return string(r.Kind())
}

func (e *Engine) logFailure(err error, r record.Record) {
	if model.IsInvariant(err) {
		e.logger.Error().Stack().Err(err).Str("kind", kindOf(r)).Msg("record failed")
		return
	}
	e.logger.Debug().Err(err).Str("kind", kindOf(r)).Msg("record rejected")
}
