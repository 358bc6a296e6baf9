// Package memory provides an in-process persistence implementation used for
// local runs and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hirezen/stageflow/pkg/conditions"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface in memory.
type Persistence struct {
	mu  sync.RWMutex
	now func() time.Time

	candidates   map[string]*models.Candidate
	rules        map[string]*models.TransitionRule
	executions   []*models.TransitionExecution
	activityLogs []*models.ActivityLog

	evaluator *conditions.Evaluator
}

// Option configures the in-memory store.
type Option func(*Persistence)

// WithClock overrides the time source used for activity logs and time based conditions.
func WithClock(now func() time.Time) Option {
	return func(p *Persistence) {
		p.now = now
	}
}

// NewPersistence creates an empty in-memory store.
func NewPersistence(opts ...Option) *Persistence {
	p := &Persistence{
		now:        time.Now,
		candidates: map[string]*models.Candidate{},
		rules:      map[string]*models.TransitionRule{},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.evaluator = conditions.NewEvaluator(conditions.WithClock(p.now))

	return p
}

func (p *Persistence) CandidateRepository() persistence.CandidateRepository {
	return &candidateRepository{p: p}
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return &ruleRepository{p: p}
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return &executionRepository{p: p}
}

func (p *Persistence) ActivityLogRepository() persistence.ActivityLogRepository {
	return &activityLogRepository{p: p}
}

func (p *Persistence) ConditionChecker() persistence.ConditionChecker {
	return &conditionChecker{p: p}
}

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close performs any necessary cleanup. The in-memory store has nothing to release.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}
