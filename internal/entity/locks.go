package entity

import (
	"fmt"
	"strings"
)

// Locks is a set of advisory lock flags. Records consult them before
// mutating; the graph itself does not enforce them.
type Locks uint8

const (
	// LockMove forbids repositioning or reordering.
	LockMove Locks = 1 << iota
	// LockDelete forbids removal.
	LockDelete
	// LockEdit forbids content changes.
	LockEdit

	// LockNone is the empty set.
	LockNone Locks = 0
	// LockAll sets every flag.
	LockAll = LockMove | LockDelete | LockEdit
)

var lockNames = []struct {
	flag Locks
	name string
}{
	{LockMove, "move"},
	{LockDelete, "delete"},
	{LockEdit, "edit"},
}

// Has reports whether all flags in f are set.
func (l Locks) Has(f Locks) bool {
	return l&f == f
}

// With returns l with f set.
func (l Locks) With(f Locks) Locks {
	return l | f
}

// Without returns l with f cleared.
func (l Locks) Without(f Locks) Locks {
	return l &^ f
}

// String returns a comma separated flag list, e.g. "move,delete".
func (l Locks) String() string {
	var parts []string
	for _, ln := range lockNames {
		if l.Has(ln.flag) {
			parts = append(parts, ln.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseLocks parses the String form.
func ParseLocks(s string) (Locks, error) {
	var l Locks
	if strings.TrimSpace(s) == "" {
		return l, nil
	}
outer:
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		for _, ln := range lockNames {
			if ln.name == part {
				l |= ln.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown lock flag %q", part)
	}
	return l, nil
}

// MarshalText implements encoding.TextMarshaler.
func (l Locks) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Locks) UnmarshalText(text []byte) error {
	parsed, err := ParseLocks(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
