package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a persisted file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a format from a file extension. Unknown extensions
// are JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes v in format f.
func Encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// Decode reads v in format f. JSON input may not carry unknown fields.
func Decode(data []byte, v any, f Format) error {
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(v)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// WriteFile writes v to path in the format its extension selects.
func WriteFile(path string, v any) error {
	var buf bytes.Buffer
	if err := Encode(&buf, v, FormatForPath(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile reads path into v in the format its extension selects.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Decode(data, v, FormatForPath(path))
}

// Load reads and checks a replay log file.
func Load(path string) (Log, error) {
	var l Log
	if err := ReadFile(path, &l); err != nil {
		return Log{}, fmt.Errorf("%w: %s: %w", ErrReplay, path, err)
	}
	if err := l.Check(); err != nil {
		return Log{}, err
	}
	return l, nil
}

// Save writes a replay log file.
func (l Log) Save(path string) error {
	return WriteFile(path, l)
}
