// Package metrics holds the Prometheus instruments of the edit engine.
// Instruments live on a caller supplied registry so tests and the CLI can
// each own one.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dshills/cryptex/internal/model"
)

// Metrics groups the engine instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// recordsApplied counts successfully applied records.
	// Labels: kind (record kind)
	recordsApplied *prometheus.CounterVec

	// recordFailures counts rejected records.
	// Labels: class (locked, invariant, other)
	recordFailures *prometheus.CounterVec

	// steps counts undo and redo steps.
	// Labels: direction (undo, redo), status (ok, error)
	steps *prometheus.CounterVec

	// reconcileRecords is the size of reconciliation outputs.
	reconcileRecords prometheus.Histogram
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recordsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptex",
			Name:      "records_applied_total",
			Help:      "Records applied to the edit layer",
		}, []string{"kind"}),
		recordFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptex",
			Name:      "record_failures_total",
			Help:      "Records rejected by the edit layer",
		}, []string{"class"}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptex",
			Name:      "undo_total",
			Help:      "Undo and redo steps",
		}, []string{"direction", "status"}),
		reconcileRecords: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cryptex",
			Name:      "reconcile_records",
			Help:      "Records emitted per reconciliation",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Class names the error class of err for the failures counter.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrLocked):
		return "locked"
	case model.IsInvariant(err):
		return "invariant"
	default:
		return "other"
	}
}

// ObserveApply records the outcome of applying one record of kind.
func (m *Metrics) ObserveApply(kind string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.recordFailures.WithLabelValues(Class(err)).Inc()
		return
	}
	m.recordsApplied.WithLabelValues(kind).Inc()
}

// ObserveStep records an undo or redo.
func (m *Metrics) ObserveStep(direction string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.steps.WithLabelValues(direction, status).Inc()
}

// ObserveReconcile records the size of one reconciliation.
func (m *Metrics) ObserveReconcile(records int) {
	if m == nil {
		return
	}
	m.reconcileRecords.Observe(float64(records))
}
