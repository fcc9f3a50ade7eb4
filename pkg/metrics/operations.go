package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// OperationMetrics counts backup, restore and report runs plus per-entity
// restore outcomes.
type OperationMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.CounterVec
}

// NewOperationMetrics registers the operation metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOperationMetrics(reg prometheus.Registerer) *OperationMetrics {
	if reg == nil {
		return &OperationMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "operation_runs_total",
		Help:      "Backup, restore and report runs by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of backup, restore and report runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "restore_records_total",
		Help:      "Records processed by restores, by entity and outcome.",
	}, []string{"entity", "outcome"})
	reg.MustRegister(runs, duration, records)
	return &OperationMetrics{runs: runs, duration: duration, records: records}
}

// Observe records one run of the named operation.
func (m *OperationMetrics) Observe(operation string, started time.Time, err error) {
	if m == nil || m.runs == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	operation = normalizeLabel(operation)
	m.runs.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// AddRestoredRecords adds per-entity restore counts.
func (m *OperationMetrics) AddRestoredRecords(entity string, succeeded, failed int) {
	if m == nil || m.records == nil {
		return
	}
	if succeeded > 0 {
		m.records.WithLabelValues(entity, OutcomeSuccess).Add(float64(succeeded))
	}
	if failed > 0 {
		m.records.WithLabelValues(entity, OutcomeFailure).Add(float64(failed))
	}
}
