package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconciliationMetrics records outcomes of webhook payment reconciliation.
type ReconciliationMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation metrics on the provided registerer.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconciliation_duration_seconds",
		Help:    "Duration of webhook payment reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_outcomes_total",
		Help: "Reconciliation results by outcome (applied, duplicate, ignored, failed).",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &ReconciliationMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveDuration records the processing duration for an event type.
func (r *ReconciliationMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncOutcome increments the counter for the given event type and outcome.
func (r *ReconciliationMetrics) IncOutcome(eventType, outcome string) {
	if r == nil || r.outcomes == nil {
		return
	}
	r.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
