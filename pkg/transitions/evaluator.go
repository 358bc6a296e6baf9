package transitions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/hirezen/stageflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Evaluator decides whether a rule applies to a candidate. The condition
// grammar belongs to the store; the evaluator treats its verdict as authoritative.
type Evaluator struct {
	checker persistence.ConditionChecker
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewEvaluator(logger *slog.Logger, checker persistence.ConditionChecker, tracer trace.Tracer) *Evaluator {
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Evaluator{
		checker: checker,
		logger:  logger.With("module", "evaluator"),
		tracer:  tracer,
	}
}

// Evaluate checks the rule's conditions for the candidate. A failed check is
// returned as an error wrapping ErrConditionEvaluation and never reported as
// "not met".
func (e *Evaluator) Evaluate(
	ctx context.Context,
	candidate *models.Candidate,
	rule *models.TransitionRule,
	triggerType models.TriggerType,
	eventData map[string]any,
) (*Evaluation, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "transitions.evaluate",
		attribute.String(otelhelper.CandidateIDKey, candidate.ID),
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
	)
	defer span.End()

	e.logger.DebugContext(ctx, "evaluating rule",
		"candidate_id", candidate.ID,
		"rule_id", rule.ID,
		"trigger_type", triggerType,
		"has_event_data", eventData != nil,
	)

	result, err := e.checker.CheckConditions(ctx, candidate.ID, rule.ID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, e.wrap(candidate, rule, err)
	}

	if result == nil {
		err = errors.New("condition check returned no result")
		otelhelper.SetError(span, err)

		return nil, e.wrap(candidate, rule, err)
	}

	if result.Error != "" {
		err = errors.New(result.Error)
		otelhelper.SetError(span, err)

		return nil, e.wrap(candidate, rule, err)
	}

	return &Evaluation{
		ShouldTransition: result.Met,
		Reason:           result.Reason,
		ConditionsMet:    result.Details,
	}, nil
}

func (e *Evaluator) wrap(candidate *models.Candidate, rule *models.TransitionRule, err error) error {
	return &TransitionError{
		Op:          "Evaluate",
		CandidateID: candidate.ID,
		RuleID:      rule.ID,
		Err:         fmt.Errorf("%w: %w", ErrConditionEvaluation, err),
	}
}
