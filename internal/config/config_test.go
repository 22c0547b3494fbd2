package config

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cryptex/internal/config/loader"
)

func fileLoader(t *testing.T, content string) loader.Loader {
	t.Helper()
	fsys := fstest.MapFS{"config.toml": {Data: []byte(content)}}
	return loader.NewTOMLLoaderWithFS(loader.FSAdapter{FS: fsys}, "config.toml")
}

func envLoader(vars ...string) loader.Loader {
	return loader.NewEnvLoader(EnvPrefix).WithEnviron(func() []string { return vars })
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000, cfg.History.MaxEntries)
	assert.True(t, cfg.Locks.Enforce)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce.Std())
	assert.Equal(t, 3, cfg.Verify.Runs)
	assert.NoError(t, Default().Validate())
}

func TestFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(WithLoader(fileLoader(t, `
[log]
level = "debug"
format = "json"

[history]
maxEntries = 50

[watch]
debounce = "1s"
`)), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 50, cfg.History.MaxEntries)
	assert.Equal(t, time.Second, cfg.Watch.Debounce.Std())
	// Untouched settings keep their defaults.
	assert.True(t, cfg.Locks.Enforce)
	assert.Equal(t, 3, cfg.Verify.Runs)
}

func TestEnvOverridesFile(t *testing.T) {
	cfg, err := Load(
		WithLoader(fileLoader(t, "[history]\nmaxEntries = 50\n[store]\ndsn = \"file.db\"\n")),
		WithEnv(envLoader(
			"CRYPTEX_HISTORY_MAX_ENTRIES=7",
			"CRYPTEX_LOCKS_ENFORCE=false",
			"CRYPTEX_DB=env.db",
			"CRYPTEX_DEBOUNCE=2s",
			"HOME=/root",
		)),
	)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.History.MaxEntries)
	assert.False(t, cfg.Locks.Enforce)
	assert.Equal(t, "env.db", cfg.Store.DSN)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce.Std())
}

func TestMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(WithFile("/nonexistent/cryptex/config.toml"), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"unknown setting", []Option{WithLoader(fileLoader(t, "[log]\ncolour = true\n")), WithoutEnv()}},
		{"unknown env setting", []Option{WithEnv(envLoader("CRYPTEX_BOGUS_THING=1"))}},
		{"malformed toml", []Option{WithLoader(fileLoader(t, "[log\n")), WithoutEnv()}},
		{"bad duration", []Option{WithLoader(fileLoader(t, "[watch]\ndebounce = \"soon\"\n")), WithoutEnv()}},
		{"bad level", []Option{WithLoader(fileLoader(t, "[log]\nlevel = \"loud\"\n")), WithoutEnv()}},
		{"zero runs", []Option{WithEnv(envLoader("CRYPTEX_VERIFY_RUNS=0"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	cfg.History.MaxEntries = -1
	cfg.Store.DSN = ""

	err := cfg.Validate()
	require.Error(t, err)
	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	var paths []string
	for _, e := range errs {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"log.format", "history.maxEntries", "store.dsn"}, paths)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Output = "/tmp/cryptex.prom"
	data, err := cfg.Encode()
	require.NoError(t, err)

	got, err := Load(WithLoader(fileLoader(t, string(data))), WithoutEnv())
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
