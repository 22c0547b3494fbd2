// Package config provides cryptex's runtime configuration.
//
// Settings come from four sources, each overriding the one before:
//
//	┌─────────────────────────────┐
//	│  4. Command line flags      │  ← applied by the caller
//	├─────────────────────────────┤
//	│  3. CRYPTEX_* environment   │
//	├─────────────────────────────┤
//	│  2. config.toml             │  ← ~/.config/cryptex/config.toml
//	├─────────────────────────────┤
//	│  1. Built-in defaults       │
//	└─────────────────────────────┘
//
// The file and environment are read by the loader sub-package as raw maps,
// merged, and decoded strictly into Config: an unknown setting is an error.
//
// # Basic Usage
//
//	cfg, err := config.Load(config.WithFile(path))
//	if err != nil {
//	    return err
//	}
//	logger := logging.New(cfg.Log)
package config
