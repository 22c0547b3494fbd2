// Package engine provides the workspace facade of the Cryptex editor.
//
// An Engine owns two layers built from the same base snapshot: the base
// layer, which is the starting state of a level, and the edit layer, which
// the player changes through records. Exactly one of them is visible. All
// edits go through the edit log in the history package, so every change
// can be undone, redone and captured as a replay log.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - record: the closed set of invertible edits and their application
//   - history: undo/redo stacks, batch frames and the journal
//   - reconcile: the record sequence that turns one snapshot into another
//
// # Notifications
//
// Structural changes to the edit layer are published on the event bus as
// event.Event[model.Notification] under "edit.<kind>", for example
// "edit.tape.added". Engine level changes use the "engine." topics below.
// Events are published after the operation completes and the engine lock
// is released, in the order the changes were applied, so handlers may call
// back into the engine.
//
// # Basic Usage
//
//	e, err := engine.New(level.Base, engine.WithBus(bus))
//	if err != nil {
//	    return err
//	}
//
//	err = e.ApplyModificationRecord(record.CreateTape{Cryptex: cx, Index: 1, Tape: t})
//	err = e.UndoModification()
//
//	// Group edits into one undo step.
//	frame := e.NewBatchFrame("paste")
//	defer frame.Close()
//
//	// Capture the session as a solution.
//	log := e.SerializeModifications()
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. Batch frames are not: open
// and close a frame on the goroutine that applies its records.
package engine
