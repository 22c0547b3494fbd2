package model

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error classes.
var (
	// ErrLocked is returned when a lock flag forbids an edit. It is
	// user-recoverable: callers should check CanDelete/CanMove/CanEdit first.
	ErrLocked = errors.New("entity is locked")

	// ErrInvariant marks programming errors: the caller and the graph have
	// desynchronized. Every error below wraps it.
	ErrInvariant = errors.New("invariant violation")
)

// Invariant violations.
var (
	// ErrNotFound is returned when an id is absent from the graph.
	ErrNotFound = fmt.Errorf("%w: no such entity", ErrInvariant)

	// ErrOutOfRange is returned for an index outside its container.
	ErrOutOfRange = fmt.Errorf("%w: index out of range", ErrInvariant)

	// ErrDuplicateID is returned when an inserted id already exists.
	ErrDuplicateID = fmt.Errorf("%w: duplicate id", ErrInvariant)

	// ErrOccupied is returned when a label offset is already taken.
	ErrOccupied = fmt.Errorf("%w: offset occupied", ErrInvariant)

	// ErrInvalidValue is returned for unknown enum tags and malformed input.
	ErrInvalidValue = fmt.Errorf("%w: invalid value", ErrInvariant)
)

// IsInvariant reports whether err is a programming-class error.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}

// IsLocked reports whether err is a lock rejection.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// invariant wraps a sentinel with context and a stack trace.
func invariant(sentinel error, format string, args ...any) error {
	return pkgerrors.Wrapf(sentinel, format, args...)
}

// Invariantf is invariant for other packages that detect a desync
// themselves.
func Invariantf(sentinel error, format string, args ...any) error {
	return invariant(sentinel, format, args...)
}
