package history

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/cryptex/internal/engine/record"
	"github.com/dshills/cryptex/internal/model"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrBatchOpen     = errors.New("batch frame is open")
)

// DefaultMaxEntries bounds the undo stack when no limit is configured.
const DefaultMaxEntries = 1000

// entry is one undo or redo step. Undo entries hold inverses and are
// applied newest first; redo entries hold forward records and are applied
// in order.
type entry struct {
	name      string
	records   []record.Record
	timestamp time.Time
	seq       uint64
}

// History manages the undo/redo stacks for one layer.
type History struct {
	layer *model.Layer

	undoStack []*entry
	redoStack []*entry

	// Batch state
	batch *openBatch

	journal []record.Record
	seq     uint64

	// Configuration
	maxEntries int
	clock      func() time.Time
	logger     zerolog.Logger
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries bounds the undo stack. Values <= 0 select the default.
func WithMaxEntries(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxEntries = n
		}
	}
}

// WithClock sets the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(h *History) { h.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *History) { h.logger = logger }
}

// NewHistory creates an edit log over layer.
func NewHistory(layer *model.Layer, opts ...Option) *History {
	h := &History{
		layer:      layer,
		maxEntries: DefaultMaxEntries,
		clock:      time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Layer returns the layer the log edits.
func (h *History) Layer() *model.Layer { return h.layer }

// ApplyAndPush applies r, records its inverse and clears the redo stack.
// Inside a batch frame the inverse joins the frame instead of becoming its
// own undo step.
func (h *History) ApplyAndPush(r record.Record) error {
	inv, err := record.Apply(h.layer, r, false)
	if err != nil {
		return err
	}
	h.journal = append(h.journal, r)
	h.redoStack = nil

	if h.batch != nil {
		h.batch.records = append(h.batch.records, inv)
		return nil
	}
	h.pushUndo(&entry{name: string(r.Kind()), records: []record.Record{inv}, timestamp: h.clock()})
	return nil
}

// pushUndo adds an entry and enforces the size bound. Entries are numbered
// in push order, so the stack is always ascending.
func (h *History) pushUndo(e *entry) {
	h.seq++
	e.seq = h.seq
	h.undoStack = append(h.undoStack, e)
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = slices.Delete(h.undoStack, 0, excess)
	}
}

// Undo reverts the most recent step.
func (h *History) Undo() error {
	if h.batch != nil {
		return ErrBatchOpen
	}
	if len(h.undoStack) == 0 {
		return ErrNothingToUndo
	}

	e := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]

	// Inverses are applied newest first.
	applied, forward, err := h.run(e.records, true)
	if err != nil {
		h.undoStack = append(h.undoStack, e)
		h.logger.Error().Stack().Err(err).Str("step", e.name).Msg("undo failed")
		return fmt.Errorf("undo %s: %w", e.name, err)
	}
	h.journal = append(h.journal, applied...)

	slices.Reverse(forward)
	h.redoStack = append(h.redoStack, &entry{name: e.name, records: forward, timestamp: e.timestamp})
	h.logger.Debug().Str("step", e.name).Int("records", len(e.records)).Msg("undo")
	return nil
}

// Redo re-applies the most recently undone step.
func (h *History) Redo() error {
	if h.batch != nil {
		return ErrBatchOpen
	}
	if len(h.redoStack) == 0 {
		return ErrNothingToRedo
	}

	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]

	applied, inverses, err := h.run(e.records, false)
	if err != nil {
		h.redoStack = append(h.redoStack, e)
		h.logger.Error().Stack().Err(err).Str("step", e.name).Msg("redo failed")
		return fmt.Errorf("redo %s: %w", e.name, err)
	}
	h.journal = append(h.journal, applied...)

	h.pushUndo(&entry{name: e.name, records: inverses, timestamp: e.timestamp})
	h.logger.Debug().Str("step", e.name).Int("records", len(e.records)).Msg("redo")
	return nil
}

// run applies records without lock gating, in reverse when backwards is
// set. It returns the records applied, in application order, and their
// inverses. If one fails the ones already applied are reverted.
func (h *History) run(records []record.Record, backwards bool) (applied, inverses []record.Record, err error) {
	order := slices.Clone(records)
	if backwards {
		slices.Reverse(order)
	}
	for _, r := range order {
		inv, err := record.Restore(h.layer, r)
		if err != nil {
			for i := len(inverses) - 1; i >= 0; i-- {
				_, _ = record.Restore(h.layer, inverses[i])
			}
			return nil, nil, err
		}
		applied = append(applied, r)
		inverses = append(inverses, inv)
	}
	return applied, inverses, nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	return h.batch == nil && len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	return h.batch == nil && len(h.redoStack) > 0
}

// UndoCount returns the number of undo steps available.
func (h *History) UndoCount() int { return len(h.undoStack) }

// RedoCount returns the number of redo steps available.
func (h *History) RedoCount() int { return len(h.redoStack) }

// Clear discards both stacks, any open batch and the journal. The layer is
// not touched.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
	h.batch = nil
	h.journal = nil
}

// Journal returns every record applied since the last Clear, in order.
func (h *History) Journal() []record.Record {
	return slices.Clone(h.journal)
}

// StepInfo describes an undo or redo step.
type StepInfo struct {
	Name      string
	Records   int
	Timestamp time.Time
}

func (e *entry) info() StepInfo {
	return StepInfo{Name: e.name, Records: len(e.records), Timestamp: e.timestamp}
}

// UndoInfo lists the undo steps, oldest first.
func (h *History) UndoInfo() []StepInfo {
	out := make([]StepInfo, len(h.undoStack))
	for i, e := range h.undoStack {
		out[i] = e.info()
	}
	return out
}

// RedoInfo lists the redo steps, oldest first.
func (h *History) RedoInfo() []StepInfo {
	out := make([]StepInfo, len(h.redoStack))
	for i, e := range h.redoStack {
		out[i] = e.info()
	}
	return out
}

// PeekUndo returns the next undo step without removing it.
func (h *History) PeekUndo() (StepInfo, bool) {
	if len(h.undoStack) == 0 {
		return StepInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns the next redo step without removing it.
func (h *History) PeekRedo() (StepInfo, bool) {
	if len(h.redoStack) == 0 {
		return StepInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// MaxEntries returns the undo bound.
func (h *History) MaxEntries() int { return h.maxEntries }
