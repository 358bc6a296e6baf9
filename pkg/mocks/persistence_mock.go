package mocks

import (
	"context"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockCandidateRepository is a mock implementation of persistence.CandidateRepository interface.
type MockCandidateRepository struct {
	mock.Mock
}

func (m *MockCandidateRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Candidate), args.Error(1)
}

func (m *MockCandidateRepository) ListByStage(ctx context.Context, stage string) ([]*models.Candidate, error) {
	args := m.Called(ctx, stage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Candidate), args.Error(1)
}

func (m *MockCandidateRepository) UpdateStage(ctx context.Context, id, stage string, at time.Time) error {
	args := m.Called(ctx, id, stage, at)

	return args.Error(0)
}

func (m *MockCandidateRepository) Save(ctx context.Context, candidate *models.Candidate) error {
	args := m.Called(ctx, candidate)

	return args.Error(0)
}

// MockRuleRepository is a mock implementation of persistence.RuleRepository interface.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*models.TransitionRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TransitionRule), args.Error(1)
}

func (m *MockRuleRepository) ListEnabledByStage(ctx context.Context, fromStage string) ([]*models.TransitionRule, error) {
	args := m.Called(ctx, fromStage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TransitionRule), args.Error(1)
}

func (m *MockRuleRepository) ListEnabled(ctx context.Context) ([]*models.TransitionRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TransitionRule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *models.TransitionRule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository interface.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) Create(ctx context.Context, execution *models.TransitionExecution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) UpdateNotification(ctx context.Context, id string, sent bool, notificationID *string) error {
	args := m.Called(ctx, id, sent, notificationID)

	return args.Error(0)
}

func (m *MockExecutionRepository) RecentSuccess(
	ctx context.Context,
	candidateID, fromStage, toStage string,
	since time.Time,
) (*models.TransitionExecution, error) {
	args := m.Called(ctx, candidateID, fromStage, toStage, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TransitionExecution), args.Error(1)
}

func (m *MockExecutionRepository) ListByCandidate(ctx context.Context, candidateID string, limit int) ([]*models.TransitionExecution, error) {
	args := m.Called(ctx, candidateID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TransitionExecution), args.Error(1)
}

// MockConditionChecker is a mock implementation of persistence.ConditionChecker interface.
type MockConditionChecker struct {
	mock.Mock
}

func (m *MockConditionChecker) CheckConditions(ctx context.Context, candidateID, ruleID string) (*models.ConditionResult, error) {
	args := m.Called(ctx, candidateID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ConditionResult), args.Error(1)
}

// StubPersistence serves a persistence.Persistence from a base store with
// selected repositories replaced, typically by mocks.
type StubPersistence struct {
	persistence.Persistence

	Candidates persistence.CandidateRepository
	Rules      persistence.RuleRepository
	Executions persistence.ExecutionRepository
	Checker    persistence.ConditionChecker
}

func (s *StubPersistence) CandidateRepository() persistence.CandidateRepository {
	if s.Candidates != nil {
		return s.Candidates
	}

	return s.Persistence.CandidateRepository()
}

func (s *StubPersistence) RuleRepository() persistence.RuleRepository {
	if s.Rules != nil {
		return s.Rules
	}

	return s.Persistence.RuleRepository()
}

func (s *StubPersistence) ExecutionRepository() persistence.ExecutionRepository {
	if s.Executions != nil {
		return s.Executions
	}

	return s.Persistence.ExecutionRepository()
}

func (s *StubPersistence) ConditionChecker() persistence.ConditionChecker {
	if s.Checker != nil {
		return s.Checker
	}

	return s.Persistence.ConditionChecker()
}
