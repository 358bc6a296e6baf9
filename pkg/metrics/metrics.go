// Package metrics exposes prometheus instrumentation for the transition engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for transition evaluation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Per-pair transition outcomes by status and mode
	TransitionOutcome *prometheus.CounterVec

	// Orchestrator request latency by mode
	EvaluateLatency *prometheus.HistogramVec

	// Notification dispatch outcomes: sent, failed
	NotificationOutcome *prometheus.CounterVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransitionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stageflow_transition_outcomes_total",
			Help: "Total transition outcomes by status and mode",
		}, []string{"status", "mode"}),

		EvaluateLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stageflow_evaluate_duration_seconds",
			Help:    "Duration of a full transition evaluation request",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),

		NotificationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stageflow_notification_outcomes_total",
			Help: "Total notification dispatch outcomes",
		}, []string{"outcome"}),
	}
}

// IncrementOutcome records one transition outcome.
func (m *Metrics) IncrementOutcome(status, mode string) {
	if m != nil {
		m.TransitionOutcome.WithLabelValues(status, mode).Inc()
	}
}

// ObserveEvaluateLatency records the duration of an orchestrator request.
func (m *Metrics) ObserveEvaluateLatency(mode string, d time.Duration) {
	if m != nil {
		m.EvaluateLatency.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// IncrementNotification records a notification dispatch outcome.
func (m *Metrics) IncrementNotification(outcome string) {
	if m != nil {
		m.NotificationOutcome.WithLabelValues(outcome).Inc()
	}
}
