package history

import (
	"github.com/dshills/cryptex/internal/engine/record"
)

// openBatch collects the inverses of records applied while a frame is
// open.
type openBatch struct {
	name    string
	depth   int
	records []record.Record
}

// BatchFrame groups edits into a single undo step. Use with defer:
//
//	defer h.NewBatchFrame("Paste").Close()
type BatchFrame struct {
	history *History
	batch   *openBatch
	start   int
	active  bool
}

// NewBatchFrame opens a frame. Nested frames join the outermost one; the
// outer name wins.
func (h *History) NewBatchFrame(name string) *BatchFrame {
	if h.batch == nil {
		h.batch = &openBatch{name: name}
	}
	h.batch.depth++
	return &BatchFrame{
		history: h,
		batch:   h.batch,
		start:   len(h.batch.records),
		active:  true,
	}
}

// Close ends the frame. Closing the outermost frame commits the batch as
// one undo step, or nothing if no record was applied. Safe to call more
// than once, and after Clear.
func (f *BatchFrame) Close() {
	if !f.active {
		return
	}
	f.active = false

	h := f.history
	if h.batch != f.batch {
		return
	}
	h.batch.depth--
	if h.batch.depth > 0 {
		return
	}

	b := h.batch
	h.batch = nil
	if len(b.records) == 0 {
		return
	}
	h.pushUndo(&entry{name: b.name, records: b.records, timestamp: h.clock()})
}

// Rollback reverts every record applied since this frame opened and closes
// it. Rolled back records stay in the journal, followed by the records
// that reverted them.
func (f *BatchFrame) Rollback() error {
	if !f.active {
		return nil
	}
	h := f.history
	if h.batch == f.batch {
		pending := f.batch.records[f.start:]
		applied, _, err := h.run(pending, true)
		if err != nil {
			return err
		}
		h.journal = append(h.journal, applied...)
		f.batch.records = f.batch.records[:f.start]
	}
	f.Close()
	return nil
}

// Len returns the number of records applied in the frame so far.
func (f *BatchFrame) Len() int {
	if !f.active || f.history.batch != f.batch {
		return 0
	}
	return len(f.batch.records) - f.start
}

// InBatch reports whether a frame is open.
func (h *History) InBatch() bool { return h.batch != nil }

// Checkpoint is a point in history that can be returned to. It names the
// undo step on top of the stack when it was taken, so trimming old steps
// does not shift it.
type Checkpoint struct {
	seq uint64
}

// CreateCheckpoint marks the current position.
func (h *History) CreateCheckpoint() Checkpoint {
	if len(h.undoStack) == 0 {
		return Checkpoint{}
	}
	return Checkpoint{seq: h.undoStack[len(h.undoStack)-1].seq}
}

// StepsSince returns how many undo steps were pushed after cp and are
// still on the stack.
func (h *History) StepsSince(cp Checkpoint) int {
	n := 0
	for i := len(h.undoStack) - 1; i >= 0 && h.undoStack[i].seq > cp.seq; i-- {
		n++
	}
	return n
}

// UndoToCheckpoint undoes every step pushed after cp. Steps undone since
// cp was taken are not redone.
func (h *History) UndoToCheckpoint(cp Checkpoint) error {
	for range h.StepsSince(cp) {
		if err := h.Undo(); err != nil {
			return err
		}
	}
	return nil
}
