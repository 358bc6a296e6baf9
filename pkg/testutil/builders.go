// Package testutil provides builders for candidates, rules, and seeded stores.
package testutil

import (
	"context"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence/memory"
)

// CandidateOption customizes a candidate built by NewCandidate.
type CandidateOption func(*models.Candidate)

// NewCandidate builds a candidate in the given stage.
func NewCandidate(id, stage string, opts ...CandidateOption) *models.Candidate {
	candidate := &models.Candidate{
		ID:         id,
		FullName:   "Candidate " + id,
		Email:      id + "@example.com",
		Status:     stage,
		JobID:      "job-1",
		Attributes: map[string]any{},
	}

	for _, opt := range opts {
		opt(candidate)
	}

	return candidate
}

// WithAttribute sets a stored attribute conditions may reference.
func WithAttribute(key string, value any) CandidateOption {
	return func(c *models.Candidate) {
		c.Attributes[key] = value
	}
}

// WithUpdatedAt sets the candidate's last stage change.
func WithUpdatedAt(at time.Time) CandidateOption {
	return func(c *models.Candidate) {
		c.UpdatedAt = at
	}
}

// RuleOption customizes a rule built by NewRule.
type RuleOption func(*models.TransitionRule)

// NewRule builds an enabled rule without conditions, which is always satisfied.
func NewRule(id, fromStage, toStage string, opts ...RuleOption) *models.TransitionRule {
	rule := &models.TransitionRule{
		ID:        id,
		Name:      "Rule " + id,
		FromStage: fromStage,
		ToStage:   toStage,
		Enabled:   true,
	}

	for _, opt := range opts {
		opt(rule)
	}

	return rule
}

// Disabled marks the rule as disabled.
func Disabled() RuleOption {
	return func(r *models.TransitionRule) {
		r.Enabled = false
	}
}

// WithConditions sets the rule's condition document.
func WithConditions(cond models.Condition) RuleOption {
	return func(r *models.TransitionRule) {
		r.Conditions = cond
	}
}

// WithNotification enables automatic notification with the given template.
// An empty template falls back to the default.
func WithNotification(template string) RuleOption {
	return func(r *models.TransitionRule) {
		r.AutoSendNotification = true
		r.NotificationTemplate = template
	}
}

// WithCreatedAt fixes the rule's creation time, which determines store order.
func WithCreatedAt(at time.Time) RuleOption {
	return func(r *models.TransitionRule) {
		r.CreatedAt = at
	}
}

// NewMemoryStore returns an in-memory store seeded with candidates and rules.
func NewMemoryStore(
	now func() time.Time,
	candidates []*models.Candidate,
	rules []*models.TransitionRule,
) (*memory.Persistence, error) {
	store := memory.NewPersistence(memory.WithClock(now))
	ctx := context.Background()

	for _, candidate := range candidates {
		err := store.CandidateRepository().Save(ctx, candidate)
		if err != nil {
			return nil, err
		}
	}

	for _, rule := range rules {
		err := store.RuleRepository().Save(ctx, rule)
		if err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Always is a condition that is always satisfied.
func Always() models.Condition {
	return models.Condition{"kind": "always"}
}

// Never is a condition that is never satisfied.
func Never() models.Condition {
	return models.Condition{"kind": "never"}
}
