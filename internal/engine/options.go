package engine

import (
	"github.com/rs/zerolog"

	"github.com/dshills/cryptex/internal/engine/history"
	"github.com/dshills/cryptex/internal/event"
	"github.com/dshills/cryptex/internal/metrics"
)

// DefaultMaxHistory bounds the undo stack.
const DefaultMaxHistory = history.DefaultMaxEntries

// Option configures an Engine during creation.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBus publishes notifications on bus.
func WithBus(bus event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithMetrics records instrument values on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithMaxHistory sets the maximum number of undo steps.
func WithMaxHistory(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxHistory = max
		}
	}
}

// WithoutLocks disables lock gating on the edit layer. Level authoring
// tools use it to edit locked entities.
func WithoutLocks() Option {
	return func(e *Engine) {
		e.enforceLocks = false
	}
}
