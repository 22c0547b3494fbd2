package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/cryptex/internal/config"
	"github.com/dshills/cryptex/internal/engine"
	"github.com/dshills/cryptex/internal/logging"
	"github.com/dshills/cryptex/internal/metrics"
	"github.com/dshills/cryptex/internal/snapshot"
	"github.com/dshills/cryptex/internal/store"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	cfg        config.Config
	logger     zerolog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cryptex",
		Short:         "Author, replay and verify cryptex levels",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "configuration file")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")
	flags.String("db", "", "solution store database")
	flags.String("metrics-out", "", "write Prometheus metrics to this file on exit")
	flags.Bool("no-locks", false, "disable lock gating on the edit layer")

	root.AddCommand(
		newDiffCmd(a),
		newReplayCmd(a),
		newVerifyCmd(a),
		newScriptCmd(a),
		newWatchCmd(a),
		newSolutionsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger
// and metrics registry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.WithFile(a.configPath))
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("db") {
		cfg.Store.DSN, _ = flags.GetString("db")
	}
	if flags.Changed("metrics-out") {
		cfg.Metrics.Output, _ = flags.GetString("metrics-out")
	}
	if noLocks, _ := flags.GetBool("no-locks"); noLocks {
		cfg.Locks.Enforce = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Log)
	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)
	return nil
}

func (a *app) writeMetrics() error {
	if a.cfg.Metrics.Output == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.Metrics.Output, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// newEngine builds a workspace over base with the configured options.
func (a *app) newEngine(base snapshot.Layer) (*engine.Engine, error) {
	opts := []engine.Option{
		engine.WithLogger(logging.Component(a.logger, "engine")),
		engine.WithMetrics(a.metrics),
		engine.WithMaxHistory(a.cfg.History.MaxEntries),
	}
	if !a.cfg.Locks.Enforce {
		opts = append(opts, engine.WithoutLocks())
	}
	return engine.New(base, opts...)
}

// openStore opens the configured solution store, creating its directory
// for file databases.
func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	dsn := a.cfg.Store.DSN
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(cmd.Context(), dsn)
}
