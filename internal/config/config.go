package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/cryptex/internal/config/loader"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CRYPTEX_"

// Config is the complete runtime configuration.
type Config struct {
	Log     Log     `toml:"log"`
	History History `toml:"history"`
	Locks   Locks   `toml:"locks"`
	Store   Store   `toml:"store"`
	Watch   Watch   `toml:"watch"`
	Verify  Verify  `toml:"verify"`
	Metrics Metrics `toml:"metrics"`
}

// Log configures the logger.
type Log struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `toml:"level"`
	// Format is "console" or "json".
	Format string `toml:"format"`
}

// History configures the edit log.
type History struct {
	MaxEntries int `toml:"maxEntries"`
}

// Locks configures lock gating on the edit layer.
type Locks struct {
	Enforce bool `toml:"enforce"`
}

// Store configures the solution store.
type Store struct {
	DSN string `toml:"dsn"`
}

// Watch configures the level watcher.
type Watch struct {
	Debounce Duration `toml:"debounce"`
}

// Verify configures replay verification.
type Verify struct {
	// Runs is how many times a log is replayed when checking determinism.
	Runs int `toml:"runs"`
}

// Metrics configures the metrics dump. An empty Output disables it.
type Metrics struct {
	Output string `toml:"output"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     Log{Level: "info", Format: "console"},
		History: History{MaxEntries: 1000},
		Locks:   Locks{Enforce: true},
		Store:   Store{DSN: defaultDSN()},
		Watch:   Watch{Debounce: Duration(250 * time.Millisecond)},
		Verify:  Verify{Runs: 3},
	}
}

// DefaultPath returns the user config file location, or "" when the
// platform has no config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cryptex", "config.toml")
}

func defaultDSN() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "cryptex.db"
	}
	return filepath.Join(dir, "cryptex", "solutions.db")
}

// Option configures Load.
type Option func(*options)

type options struct {
	file loader.Loader
	env  loader.Loader
}

// WithFile reads the TOML file at path. A missing file is skipped.
func WithFile(path string) Option {
	return func(o *options) { o.file = loader.NewTOMLLoader(path) }
}

// WithLoader reads the file layer from l.
func WithLoader(l loader.Loader) Option {
	return func(o *options) { o.file = l }
}

// WithEnv replaces the environment layer.
func WithEnv(l loader.Loader) Option {
	return func(o *options) { o.env = l }
}

// WithoutEnv skips environment overrides.
func WithoutEnv() Option {
	return func(o *options) { o.env = nil }
}

// Load builds a Config from defaults, the file layer and the environment,
// then validates it.
func Load(opts ...Option) (Config, error) {
	o := options{env: loader.NewEnvLoader(EnvPrefix)}
	for _, opt := range opts {
		opt(&o)
	}

	var merged map[string]any
	for _, l := range []loader.Loader{o.file, o.env} {
		if l == nil {
			continue
		}
		m, err := l.Load()
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if err := decode(merged, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode applies a raw settings map onto cfg. Settings absent from raw keep
// their current value.
func decode(raw map[string]any, cfg *Config) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var errs ValidationErrors
	reject := func(path string, value any, msg string) {
		errs = append(errs, &ValidationError{Path: path, Value: value, Message: msg})
	}

	if !logLevels[c.Log.Level] {
		reject("log.level", c.Log.Level, "unknown level")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		reject("log.format", c.Log.Format, `must be "console" or "json"`)
	}
	if c.History.MaxEntries < 0 {
		reject("history.maxEntries", c.History.MaxEntries, "must not be negative")
	}
	if c.Store.DSN == "" {
		reject("store.dsn", c.Store.DSN, "must be set")
	}
	if c.Watch.Debounce < 0 {
		reject("watch.debounce", c.Watch.Debounce.Std(), "must not be negative")
	}
	if c.Verify.Runs < 1 {
		reject("verify.runs", c.Verify.Runs, "must be at least 1")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Encode writes c as TOML, e.g. for `cryptex config`.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
