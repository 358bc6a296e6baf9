package postgresql

import (
	"context"
	"fmt"

	"github.com/hirezen/stageflow/pkg/conditions"
	"github.com/hirezen/stageflow/pkg/models"
)

// ConditionChecker evaluates rule conditions against the stored candidate row.
type ConditionChecker struct {
	candidates *CandidateRepository
	rules      *RuleRepository
	evaluator  *conditions.Evaluator
}

// NewConditionChecker creates a condition checker backed by the given repositories.
func NewConditionChecker(candidates *CandidateRepository, rules *RuleRepository, evaluator *conditions.Evaluator) *ConditionChecker {
	return &ConditionChecker{
		candidates: candidates,
		rules:      rules,
		evaluator:  evaluator,
	}
}

func (c *ConditionChecker) CheckConditions(ctx context.Context, candidateID, ruleID string) (*models.ConditionResult, error) {
	candidate, err := c.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	rule, err := c.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	doc, err := conditions.NewDocument(candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate document: %w", err)
	}

	result, err := c.evaluator.Evaluate(rule.Conditions, doc)
	if err != nil {
		return &models.ConditionResult{Met: false, Error: err.Error()}, nil
	}

	return result, nil
}
