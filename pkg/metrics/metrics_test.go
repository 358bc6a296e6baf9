package metrics_test

import (
	"testing"
	"time"

	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.IncrementOutcome("success", "candidate")
	m.IncrementOutcome("success", "candidate")
	m.IncrementOutcome("skipped", "rule")
	m.IncrementNotification("sent")
	m.ObserveEvaluateLatency("candidate", 25*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.TransitionOutcome.WithLabelValues("success", "candidate")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TransitionOutcome.WithLabelValues("skipped", "rule")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationOutcome.WithLabelValues("sent")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.EvaluateLatency))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.IncrementOutcome("success", "candidate")
		m.IncrementNotification("failed")
		m.ObserveEvaluateLatency("stage", time.Second)
	})
}
