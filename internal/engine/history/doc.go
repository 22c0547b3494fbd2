// Package history provides the undo/redo edit log for a model.Layer.
//
// Every edit is a record.Record. Applying a record yields its inverse, and
// the log keeps those inverses so any step can be undone and redone
// without a hand-written second variant per edit kind.
//
// # History Stack
//
//	h := NewHistory(layer, WithMaxEntries(500))
//
//	// Apply an edit and make it undoable
//	h.ApplyAndPush(record.WriteTape{Tape: id, Index: 3, Value: record.Value("a")})
//
//	// Undo/redo
//	h.Undo()
//	h.Redo()
//
// # Batch Frames
//
// Records applied while a batch frame is open undo and redo as one step:
//
//	func placeRoller(h *History) error {
//	    defer h.NewBatchFrame("Place roller").Close()
//	    // ... several ApplyAndPush calls ...
//	}
//
// A frame that applied nothing adds nothing to the undo stack. Frames
// nest; only the outermost Close commits. A record that fails inside a
// frame leaves the records already applied in place and part of the frame.
//
// # Journal
//
// Besides the stacks, the log keeps a journal of every record it applied
// since the last Clear, undo and redo steps included. Replaying the
// journal against the layer as it was at Clear reproduces the current
// layer; it is what gets saved as a replay log.
//
// History is not safe for concurrent use.
package history
