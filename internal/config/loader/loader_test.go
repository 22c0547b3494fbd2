package loader

import (
	"testing"
	"testing/fstest"
)

func TestTOMLLoader_Load(t *testing.T) {
	fsys := FSAdapter{FS: fstest.MapFS{"config.toml": {Data: []byte(`
[history]
maxEntries = 40

[locks]
enforce = false
`)}}}

	config, err := NewTOMLLoaderWithFS(fsys, "config.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	history, ok := config["history"].(map[string]any)
	if !ok {
		t.Fatal("expected history to be a map")
	}
	if history["maxEntries"] != int64(40) {
		t.Errorf("maxEntries = %v (%T), want 40", history["maxEntries"], history["maxEntries"])
	}
	if v, _ := getByPath(config, "locks.enforce"); v != false {
		t.Errorf("locks.enforce = %v, want false", v)
	}
}

func TestTOMLLoader_LoadNonExistent(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(FSAdapter{FS: fstest.MapFS{}}, "missing.toml").Load()
	if err != nil {
		t.Fatalf("expected no error for non-existent file, got: %v", err)
	}
	if config != nil {
		t.Error("expected nil config for non-existent file")
	}
}

func TestTOMLLoader_LoadInvalid(t *testing.T) {
	fsys := FSAdapter{FS: fstest.MapFS{"bad.toml": {Data: []byte("[log\nlevel = 1\n")}}}
	_, err := NewTOMLLoaderWithFS(fsys, "bad.toml").Load()
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Path != "bad.toml" {
		t.Errorf("Path = %q, want bad.toml", perr.Path)
	}
	if perr.Line == 0 {
		t.Error("expected a line number")
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("CRYPTEX_").WithEnviron(func() []string {
		return []string{
			"CRYPTEX_LOG_LEVEL=debug",
			"CRYPTEX_HISTORY_MAX_ENTRIES=12",
			"CRYPTEX_LOCKS_ENFORCE=off",
			"CRYPTEX_DB=/tmp/s.db",
			"PATH=/usr/bin",
		}
	})
	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"log.level", "debug"},
		{"history.maxEntries", int64(12)},
		{"locks.enforce", false},
		{"store.dsn", "/tmp/s.db"},
	}
	for _, tt := range tests {
		if got, ok := getByPath(config, tt.path); !ok || got != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.path, got, got, tt.want)
		}
	}
	if _, ok := config["path"]; ok {
		t.Error("unprefixed variable leaked into config")
	}
}

func TestEnvLoader_Empty(t *testing.T) {
	config, err := NewEnvLoader("CRYPTEX_").WithEnviron(func() []string { return nil }).Load()
	if err != nil || config != nil {
		t.Errorf("Load() = %v, %v; want nil, nil", config, err)
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("CRYPTEX_")
	tests := []struct {
		env      string
		expected string
	}{
		{"CRYPTEX_WATCH_DEBOUNCE", "watch.debounce"},
		{"CRYPTEX_HISTORY_MAX_ENTRIES", "history.maxEntries"},
		{"CRYPTEX_SIMPLE", "simple"},
	}
	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.expected {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.expected)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"1", int64(1)},
		{"true", true},
		{"Yes", true},
		{"OFF", false},
		{"250ms", "250ms"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.expected {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.expected, tt.expected)
		}
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"log":     map[string]any{"level": "info", "format": "console"},
		"history": map[string]any{"maxEntries": int64(10)},
	}
	src := map[string]any{
		"log":   map[string]any{"level": "debug"},
		"store": map[string]any{"dsn": "x.db"},
	}
	got := DeepMerge(dst, src)

	if v, _ := getByPath(got, "log.level"); v != "debug" {
		t.Errorf("log.level = %v, want debug", v)
	}
	if v, _ := getByPath(got, "log.format"); v != "console" {
		t.Errorf("log.format = %v, want console", v)
	}
	if v, _ := getByPath(got, "store.dsn"); v != "x.db" {
		t.Errorf("store.dsn = %v, want x.db", v)
	}
	if got := DeepMerge(nil, nil); got == nil {
		t.Error("DeepMerge(nil, nil) returned nil")
	}
}

func getByPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range splitPath(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[part]; !ok {
			return nil, false
		}
	}
	return current, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := range len(path) {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}
