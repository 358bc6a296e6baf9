package transitions_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/hirezen/stageflow/pkg/mocks"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/persistence/memory"
	"github.com/hirezen/stageflow/pkg/testutil"
	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type harness struct {
	t          *testing.T
	clock      *testClock
	store      *memory.Persistence
	stub       *mocks.StubPersistence
	dispatcher *mocks.MockDispatcher
	metrics    *metrics.Metrics
	executor   *transitions.Executor
}

func newHarness(t *testing.T, candidates []*models.Candidate, rules []*models.TransitionRule) *harness {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}

	store, err := testutil.NewMemoryStore(clock.Now, candidates, rules)
	require.NoError(t, err)

	return &harness{
		t:          t,
		clock:      clock,
		store:      store,
		stub:       &mocks.StubPersistence{Persistence: store},
		dispatcher: &mocks.MockDispatcher{},
		metrics:    metrics.New(prometheus.NewRegistry()),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (h *harness) orchestrator(opts ...transitions.ExecutorOption) *transitions.Orchestrator {
	logger := discardLogger()

	base := []transitions.ExecutorOption{
		transitions.WithClock(h.clock.Now),
		transitions.WithDispatcher(h.dispatcher),
		transitions.WithExecutorMetrics(h.metrics),
	}

	h.executor = transitions.NewExecutor(logger, h.stub, append(base, opts...)...)
	evaluator := transitions.NewEvaluator(logger, h.stub.ConditionChecker(), nil)

	return transitions.NewOrchestrator(logger, h.stub, evaluator, h.executor, transitions.WithMetrics(h.metrics))
}

func (h *harness) candidate(id string) *models.Candidate {
	h.t.Helper()

	candidate, err := h.store.CandidateRepository().GetByID(context.Background(), id)
	require.NoError(h.t, err)

	return candidate
}

func (h *harness) executions(candidateID string) []*models.TransitionExecution {
	h.t.Helper()

	list, err := h.store.ExecutionRepository().ListByCandidate(context.Background(), candidateID, 0)
	require.NoError(h.t, err)

	return list
}

// staleCandidates always returns the candidate as first loaded, emulating two
// evaluations that read the candidate before either updated it.
type staleCandidates struct {
	persistence.CandidateRepository

	snapshot *models.Candidate
}

func (s *staleCandidates) GetByID(_ context.Context, _ string) (*models.Candidate, error) {
	c := *s.snapshot

	return &c, nil
}
