package engine

import (
	"errors"

	"github.com/dshills/cryptex/internal/engine/history"
)

// Errors returned by engine operations.
var (
	// ErrLoad is wrapped by LoadBaseLayer failures. The engine is left
	// unchanged.
	ErrLoad = errors.New("load failed")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = history.ErrNothingToRedo

	// ErrBatchOpen is returned by undo and redo while a batch frame is open.
	ErrBatchOpen = history.ErrBatchOpen
)
