package transitions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/hirezen/stageflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator resolves which candidate and rule pairs a request covers and
// drives the evaluator and executor over them.
type Orchestrator struct {
	candidates persistence.CandidateRepository
	rules      persistence.RuleRepository
	evaluator  *Evaluator
	executor   *Executor

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

func NewOrchestrator(
	logger *slog.Logger,
	store persistence.Persistence,
	evaluator *Evaluator,
	executor *Executor,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		candidates: store.CandidateRepository(),
		rules:      store.RuleRepository(),
		evaluator:  evaluator,
		executor:   executor,
		logger:     logger.With("module", "orchestrator"),
		tracer:     otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Evaluate runs the mode selected by req. The trigger defaults to event in
// every mode.
func (o *Orchestrator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	mode, err := req.Mode()
	if err != nil {
		return nil, err
	}

	triggerType := req.TriggerType
	if triggerType == "" {
		triggerType = models.TriggerTypeEvent
	}

	_, err = models.ParseTriggerType(string(triggerType))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "transitions.orchestrate",
		attribute.String(otelhelper.ModeKey, string(mode)),
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.ObserveEvaluateLatency(string(mode), time.Since(start))
	}()

	var result *Result

	switch mode {
	case ModeCandidate:
		result, err = o.ByCandidate(ctx, req.CandidateID, triggerType, req.EventData)
	case ModeRule:
		result, err = o.ByRule(ctx, req.RuleID, triggerType, req.EventData)
	case ModeStage:
		result, err = o.ByStage(ctx, req.FromStage, triggerType, req.EventData)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	for _, outcome := range result.Transitions {
		o.metrics.IncrementOutcome(string(outcome.Status), string(mode))
	}

	return result, nil
}

// ByCandidate evaluates every enabled rule leaving the candidate's current stage.
// The stage is read once; rules are not re-matched after an earlier rule moves the candidate.
func (o *Orchestrator) ByCandidate(
	ctx context.Context,
	candidateID string,
	triggerType models.TriggerType,
	eventData map[string]any,
) (*Result, error) {
	candidate, err := o.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, &TransitionError{Op: "LoadCandidate", CandidateID: candidateID, Err: err}
	}

	rules, err := o.rules.ListEnabledByStage(ctx, candidate.Status)
	if err != nil {
		return nil, &TransitionError{Op: "ListRules", CandidateID: candidateID, Err: err}
	}

	result := &Result{
		Success:      true,
		Mode:         ModeCandidate,
		CandidateID:  candidate.ID,
		CurrentStage: candidate.Status,
		Transitions:  make([]Outcome, 0, len(rules)),
	}

	if len(rules) == 0 {
		result.Message = NoApplicableRulesMessage

		return result, nil
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		outcome, err := o.process(ctx, candidate, rule, triggerType, eventData)
		if err != nil {
			o.logger.ErrorContext(ctx, "transition failed",
				"candidate_id", candidate.ID,
				"rule_id", rule.ID,
				"error", err,
			)
		}

		result.Transitions = append(result.Transitions, outcome)
	}

	return result, nil
}

// ByRule evaluates one enabled rule against every candidate in its from stage.
// Candidates that fail are logged and left out, as are candidates whose
// conditions are not met.
func (o *Orchestrator) ByRule(
	ctx context.Context,
	ruleID string,
	triggerType models.TriggerType,
	eventData map[string]any,
) (*Result, error) {
	rule, err := o.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, &TransitionError{Op: "LoadRule", RuleID: ruleID, Err: err}
	}

	if !rule.Enabled {
		return nil, &TransitionError{Op: "LoadRule", RuleID: ruleID, Err: ErrRuleDisabled}
	}

	candidates, err := o.candidates.ListByStage(ctx, rule.FromStage)
	if err != nil {
		return nil, &TransitionError{Op: "ListCandidates", RuleID: ruleID, Err: err}
	}

	processed := len(candidates)
	result := &Result{
		Success:             true,
		Mode:                ModeRule,
		RuleID:              rule.ID,
		RuleName:            rule.Name,
		CandidatesProcessed: &processed,
		Transitions:         make([]Outcome, 0),
	}

	for _, candidate := range candidates {
		outcome, err := o.process(ctx, candidate, rule, triggerType, eventData)
		if err != nil {
			o.logger.ErrorContext(ctx, "skipping candidate after error",
				"candidate_id", candidate.ID,
				"rule_id", rule.ID,
				"error", err,
			)

			continue
		}

		if outcome.Status == StatusConditionsNotMet {
			continue
		}

		result.Transitions = append(result.Transitions, outcome)
	}

	return result, nil
}

// ByStage runs ByRule for each enabled rule leaving stage. A rule that fails as
// a whole is logged and skipped.
func (o *Orchestrator) ByStage(
	ctx context.Context,
	stage string,
	triggerType models.TriggerType,
	eventData map[string]any,
) (*Result, error) {
	rules, err := o.rules.ListEnabledByStage(ctx, stage)
	if err != nil {
		return nil, &TransitionError{Op: "ListRules", Err: fmt.Errorf("stage %s: %w", stage, err)}
	}

	processed := 0
	result := &Result{
		Success:             true,
		Mode:                ModeStage,
		FromStage:           stage,
		CandidatesProcessed: &processed,
		RulesEvaluated:      make([]string, 0, len(rules)),
		Transitions:         make([]Outcome, 0),
	}

	for _, rule := range rules {
		ruleResult, err := o.ByRule(ctx, rule.ID, triggerType, eventData)
		if err != nil {
			o.logger.ErrorContext(ctx, "rule evaluation failed", "stage", stage, "rule_id", rule.ID, "error", err)

			continue
		}

		result.RulesEvaluated = append(result.RulesEvaluated, rule.ID)
		result.Transitions = append(result.Transitions, ruleResult.Transitions...)
		processed += *ruleResult.CandidatesProcessed
	}

	return result, nil
}

func (o *Orchestrator) process(
	ctx context.Context,
	candidate *models.Candidate,
	rule *models.TransitionRule,
	triggerType models.TriggerType,
	eventData map[string]any,
) (Outcome, error) {
	evaluation, err := o.evaluator.Evaluate(ctx, candidate, rule, triggerType, eventData)
	if err != nil {
		outcome := newOutcome(candidate, rule)
		outcome.Status = StatusError
		outcome.Error = err.Error()

		return outcome, err
	}

	if !evaluation.ShouldTransition {
		outcome := newOutcome(candidate, rule)
		outcome.Status = StatusConditionsNotMet
		outcome.Reason = evaluation.Reason

		return outcome, nil
	}

	executed, err := o.executor.Execute(ctx, candidate, rule, evaluation, triggerType)
	if err != nil {
		outcome := newOutcome(candidate, rule)
		outcome.Status = StatusError
		outcome.Error = err.Error()

		return outcome, err
	}

	return *executed, nil
}
