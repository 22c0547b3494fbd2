package level

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/dshills/cryptex/internal/entity"
	"github.com/dshills/cryptex/internal/model"
	"github.com/dshills/cryptex/internal/replay"
	"github.com/dshills/cryptex/internal/snapshot"
)

// ErrInvalid wraps every level and solution validation failure.
var ErrInvalid = errors.New("invalid level")

// ErrWrongLevel is returned when a solution names another level.
var ErrWrongLevel = errors.New("solution is for another level")

// Level is a puzzle definition.
type Level struct {
	ID      entity.ID `json:"id" yaml:"id"`
	Version int       `json:"version" yaml:"version"`

	// Name is the display name expression.
	Name string         `json:"name" yaml:"name"`
	Base snapshot.Layer `json:"base" yaml:"base"`

	// CutFrequency tunes how often the interpreter cuts tapes.
	CutFrequency int `json:"cut_frequency" yaml:"cut_frequency"`

	Tests    []TestCase   `json:"tests" yaml:"tests"`
	Solution replay.Log   `json:"solution" yaml:"solution"`
	Stars    []int        `json:"stars,omitempty" yaml:"stars,omitempty"`
	Dialog   []DialogLine `json:"dialog,omitempty" yaml:"dialog,omitempty"`
}

// TestCase initializes the player's layer and names the values the
// interpreter must output.
type TestCase struct {
	Init     replay.Log `json:"init" yaml:"init"`
	Expected []string   `json:"expected" yaml:"expected"`
}

// DialogLine is one line of the level's story.
type DialogLine struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

// Solution is a player's answer to a level.
type Solution struct {
	Name    string     `json:"name" yaml:"name"`
	LevelID entity.ID  `json:"level_id" yaml:"level_id"`
	Score   *int       `json:"score,omitempty" yaml:"score,omitempty"`
	Log     replay.Log `json:"log" yaml:"log"`
}

// Validate checks that the base layer round-trips, that the reference
// solution replays against it and that every test initialization replays
// on top of the reference solution's result. Star thresholds must be
// ascending.
func (l Level) Validate() error {
	if l.ID.IsNil() {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if l.Version < 0 || l.CutFrequency < 0 {
		return fmt.Errorf("%w: negative version or cut frequency", ErrInvalid)
	}
	if err := roundTrips(l.Base); err != nil {
		return fmt.Errorf("%w: base: %w", ErrInvalid, err)
	}
	solved, err := replay.Apply(l.Base, l.Solution)
	if err != nil {
		return fmt.Errorf("%w: reference solution: %w", ErrInvalid, err)
	}
	for i, tc := range l.Tests {
		if _, err := replay.Apply(solved, tc.Init, replay.WithoutLocks()); err != nil {
			return fmt.Errorf("%w: test %d: %w", ErrInvalid, i, err)
		}
	}
	if !slices.IsSorted(l.Stars) {
		return fmt.Errorf("%w: star thresholds %v are not ascending", ErrInvalid, l.Stars)
	}
	return nil
}

// roundTrips checks that s deserializes and serializes back to itself.
func roundTrips(s snapshot.Layer) error {
	layer, err := model.FromSnapshot(s, model.WithoutLocks())
	if err != nil {
		return err
	}
	want := s.Clone()
	want.Normalize()
	got := layer.Snapshot()
	got.Normalize()
	if !reflect.DeepEqual(want, got) {
		return model.Invariantf(model.ErrInvariant, "snapshot does not round trip")
	}
	return nil
}

// Validate checks the solution's log against level.
func (s Solution) Validate(l Level) error {
	if s.LevelID != l.ID {
		return fmt.Errorf("%w: %s, want %s", ErrWrongLevel, s.LevelID, l.ID)
	}
	if _, err := replay.Apply(l.Base, s.Log); err != nil {
		return fmt.Errorf("%w: solution %q: %w", ErrInvalid, s.Name, err)
	}
	return nil
}

// Result is the layer a test case runs against.
type Result struct {
	Test     int
	Layer    snapshot.Layer
	Expected []string
}

// Check replays sol on the base layer and then each test initialization on
// top, returning the layer every test case hands to the interpreter.
func (l Level) Check(sol Solution) ([]Result, error) {
	if sol.LevelID != l.ID {
		return nil, fmt.Errorf("%w: %s, want %s", ErrWrongLevel, sol.LevelID, l.ID)
	}
	solved, err := replay.Apply(l.Base, sol.Log)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(l.Tests))
	for i, tc := range l.Tests {
		layer, err := replay.Apply(solved, tc.Init, replay.WithoutLocks())
		if err != nil {
			return nil, fmt.Errorf("test %d: %w", i, err)
		}
		out = append(out, Result{Test: i, Layer: layer, Expected: slices.Clone(tc.Expected)})
	}
	return out, nil
}

// StarsFor returns how many star thresholds score meets. Lower scores are
// better: a score at or under a threshold earns its star.
func (l Level) StarsFor(score int) int {
	n := 0
	for _, t := range l.Stars {
		if score <= t {
			n++
		}
	}
	return n
}
