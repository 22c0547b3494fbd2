package topic

import (
	"slices"
	"strings"
)

// Topic names what an event is about, for example "edit.tape.added".
// Patterns are topics that may contain "*" (one segment) or "**" (any
// number of segments, including none).
type Topic string

const (
	any1 = "*"
	anyN = "**"
	sep  = "."
)

func (t Topic) String() string { return string(t) }

// Segments splits t on dots. The empty topic has no segments.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), sep)
}

// Child returns t with segment appended.
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return t + sep + Topic(segment)
}

// IsValid reports whether t is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	return t != "" && !slices.Contains(t.Segments(), "")
}

// Matches reports whether t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	segs, pat := t.Segments(), pattern.Segments()

	// ok[i] is true when the pattern prefix consumed so far matches the
	// first i segments.
	ok := make([]bool, len(segs)+1)
	ok[0] = true
	for _, p := range pat {
		next := make([]bool, len(segs)+1)
		switch p {
		case anyN:
			seen := false
			for i := range ok {
				seen = seen || ok[i]
				next[i] = seen
			}
		default:
			for i := range segs {
				next[i+1] = ok[i] && (p == any1 || p == segs[i])
			}
		}
		ok = next
	}
	return ok[len(segs)]
}
