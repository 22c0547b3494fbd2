package level

import (
	"fmt"

	"github.com/dshills/cryptex/internal/replay"
)

// Load reads and validates a level file.
func Load(path string) (Level, error) {
	var l Level
	if err := replay.ReadFile(path, &l); err != nil {
		return Level{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if err := l.Validate(); err != nil {
		return Level{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Save validates l and writes it to path.
func Save(path string, l Level) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return replay.WriteFile(path, l)
}

// LoadSolution reads a solution file and validates it against l.
func LoadSolution(path string, l Level) (Solution, error) {
	var s Solution
	if err := replay.ReadFile(path, &s); err != nil {
		return Solution{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if err := s.Validate(l); err != nil {
		return Solution{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SaveSolution validates s against l and writes it to path.
func SaveSolution(path string, s Solution, l Level) error {
	if err := s.Validate(l); err != nil {
		return err
	}
	return replay.WriteFile(path, s)
}
