package memory

import (
	"context"
	"maps"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hirezen/stageflow/pkg/conditions"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
)

type candidateRepository struct {
	p *Persistence
}

func (r *candidateRepository) GetByID(_ context.Context, id string) (*models.Candidate, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	candidate, ok := r.p.candidates[id]
	if !ok {
		return nil, persistence.NewCandidateError("GetByID", id, persistence.ErrCandidateNotFound)
	}

	return copyCandidate(candidate), nil
}

func (r *candidateRepository) ListByStage(_ context.Context, stage string) ([]*models.Candidate, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	result := make([]*models.Candidate, 0)

	for _, candidate := range r.p.candidates {
		if candidate.Status == stage {
			result = append(result, copyCandidate(candidate))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *candidateRepository) UpdateStage(_ context.Context, id, stage string, at time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	candidate, ok := r.p.candidates[id]
	if !ok {
		return persistence.NewCandidateError("UpdateStage", id, persistence.ErrCandidateNotFound)
	}

	oldStage := candidate.Status
	candidate.Status = stage
	candidate.UpdatedAt = at

	if oldStage != stage {
		r.p.activityLogs = append(r.p.activityLogs, &models.ActivityLog{
			ID:          uuid.NewString(),
			CandidateID: id,
			OldStage:    oldStage,
			NewStage:    stage,
			CreatedAt:   at,
		})
	}

	return nil
}

func (r *candidateRepository) Save(_ context.Context, candidate *models.Candidate) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := r.p.now()
	stored := copyCandidate(candidate)

	if existing, ok := r.p.candidates[candidate.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = now
	}

	r.p.candidates[candidate.ID] = stored

	return nil
}

type ruleRepository struct {
	p *Persistence
}

func (r *ruleRepository) GetByID(_ context.Context, id string) (*models.TransitionRule, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	rule, ok := r.p.rules[id]
	if !ok {
		return nil, persistence.NewRuleError("GetByID", id, persistence.ErrRuleNotFound)
	}

	return copyRule(rule), nil
}

func (r *ruleRepository) ListEnabledByStage(_ context.Context, fromStage string) ([]*models.TransitionRule, error) {
	return r.list(func(rule *models.TransitionRule) bool {
		return rule.Enabled && rule.FromStage == fromStage
	}), nil
}

func (r *ruleRepository) ListEnabled(_ context.Context) ([]*models.TransitionRule, error) {
	return r.list(func(rule *models.TransitionRule) bool {
		return rule.Enabled
	}), nil
}

func (r *ruleRepository) list(keep func(*models.TransitionRule) bool) []*models.TransitionRule {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	result := make([]*models.TransitionRule, 0)

	for _, rule := range r.p.rules {
		if keep(rule) {
			result = append(result, copyRule(rule))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}

		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

func (r *ruleRepository) Save(_ context.Context, rule *models.TransitionRule) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := r.p.now()
	stored := copyRule(rule)

	if existing, ok := r.p.rules[rule.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}

	stored.UpdatedAt = now
	r.p.rules[rule.ID] = stored

	return nil
}

type executionRepository struct {
	p *Persistence
}

func (r *executionRepository) Create(_ context.Context, execution *models.TransitionExecution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if execution.ID == "" {
		execution.ID = uuid.NewString()
	}

	if execution.ExecutedAt.IsZero() {
		execution.ExecutedAt = r.p.now()
	}

	r.p.executions = append(r.p.executions, copyExecution(execution))

	return nil
}

func (r *executionRepository) UpdateNotification(_ context.Context, id string, sent bool, notificationID *string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	for _, execution := range r.p.executions {
		if execution.ID == id {
			execution.NotificationSent = sent
			execution.NotificationID = copyString(notificationID)

			return nil
		}
	}

	return persistence.ErrExecutionNotFound
}

func (r *executionRepository) RecentSuccess(
	_ context.Context,
	candidateID, fromStage, toStage string,
	since time.Time,
) (*models.TransitionExecution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	var latest *models.TransitionExecution

	for _, execution := range r.p.executions {
		if execution.CandidateID != candidateID ||
			execution.FromStage != fromStage ||
			execution.ToStage != toStage ||
			execution.Result != models.ExecutionResultSuccess ||
			execution.ExecutedAt.Before(since) {
			continue
		}

		if latest == nil || execution.ExecutedAt.After(latest.ExecutedAt) {
			latest = execution
		}
	}

	if latest == nil {
		return nil, nil
	}

	return copyExecution(latest), nil
}

func (r *executionRepository) ListByCandidate(_ context.Context, candidateID string, limit int) ([]*models.TransitionExecution, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	result := make([]*models.TransitionExecution, 0)

	for _, execution := range r.p.executions {
		if execution.CandidateID == candidateID {
			result = append(result, copyExecution(execution))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ExecutedAt.After(result[j].ExecutedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

type activityLogRepository struct {
	p *Persistence
}

func (r *activityLogRepository) LatestTransition(
	_ context.Context,
	candidateID, oldStage, newStage string,
) (*models.ActivityLog, error) {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()

	for i := len(r.p.activityLogs) - 1; i >= 0; i-- {
		entry := r.p.activityLogs[i]
		if entry.CandidateID == candidateID && entry.OldStage == oldStage && entry.NewStage == newStage {
			log := *entry

			return &log, nil
		}
	}

	return nil, nil
}

type conditionChecker struct {
	p *Persistence
}

func (c *conditionChecker) CheckConditions(ctx context.Context, candidateID, ruleID string) (*models.ConditionResult, error) {
	candidate, err := c.p.CandidateRepository().GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	rule, err := c.p.RuleRepository().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	doc, err := conditions.NewDocument(candidate)
	if err != nil {
		return nil, err
	}

	result, err := c.p.evaluator.Evaluate(rule.Conditions, doc)
	if err != nil {
		return &models.ConditionResult{Met: false, Error: err.Error()}, nil
	}

	return result, nil
}

func copyCandidate(c *models.Candidate) *models.Candidate {
	out := *c
	if c.Attributes != nil {
		out.Attributes = maps.Clone(c.Attributes)
	}

	return &out
}

func copyRule(r *models.TransitionRule) *models.TransitionRule {
	out := *r
	if r.Conditions != nil {
		out.Conditions = maps.Clone(r.Conditions)
	}

	return &out
}

func copyExecution(e *models.TransitionExecution) *models.TransitionExecution {
	out := *e
	out.ActivityLogID = copyString(e.ActivityLogID)
	out.NotificationID = copyString(e.NotificationID)

	if e.ConditionsMet != nil {
		out.ConditionsMet = maps.Clone(e.ConditionsMet)
	}

	return &out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
