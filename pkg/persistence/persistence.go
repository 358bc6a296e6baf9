// Package persistence provides the data storage abstraction layer for candidates,
// transition rules, and the transition audit log.
package persistence

import (
	"context"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
)

type Persistence interface {
	CandidateRepository() CandidateRepository
	RuleRepository() RuleRepository
	ExecutionRepository() ExecutionRepository
	ActivityLogRepository() ActivityLogRepository
	ConditionChecker() ConditionChecker

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// CandidateRepository reads and updates candidates.
type CandidateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	ListByStage(ctx context.Context, stage string) ([]*models.Candidate, error)
	// UpdateStage sets the candidate's status and updated_at. Stores record a
	// pipeline activity log entry for the change.
	UpdateStage(ctx context.Context, id, stage string, at time.Time) error
	Save(ctx context.Context, candidate *models.Candidate) error
}

// RuleRepository reads and stores transition rules.
type RuleRepository interface {
	GetByID(ctx context.Context, id string) (*models.TransitionRule, error)
	ListEnabledByStage(ctx context.Context, fromStage string) ([]*models.TransitionRule, error)
	ListEnabled(ctx context.Context) ([]*models.TransitionRule, error)
	Save(ctx context.Context, rule *models.TransitionRule) error
}

// ExecutionRepository is the append-only transition audit log.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.TransitionExecution) error
	UpdateNotification(ctx context.Context, id string, sent bool, notificationID *string) error
	// RecentSuccess returns the newest successful execution for the candidate and
	// stage pair executed at or after since, or nil when there is none.
	RecentSuccess(ctx context.Context, candidateID, fromStage, toStage string, since time.Time) (*models.TransitionExecution, error)
	ListByCandidate(ctx context.Context, candidateID string, limit int) ([]*models.TransitionExecution, error)
}

// ActivityLogRepository reads pipeline activity entries.
type ActivityLogRepository interface {
	// LatestTransition returns the newest entry for the candidate and stage pair,
	// or nil when there is none.
	LatestTransition(ctx context.Context, candidateID, oldStage, newStage string) (*models.ActivityLog, error)
}

// ConditionChecker evaluates a rule's conditions for a candidate inside the store.
// Malformed conditions are reported through ConditionResult.Error; a returned
// error means the check itself could not run.
type ConditionChecker interface {
	CheckConditions(ctx context.Context, candidateID, ruleID string) (*models.ConditionResult, error)
}
