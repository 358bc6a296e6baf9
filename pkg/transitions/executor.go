package transitions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/events"
	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/notification"
	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/hirezen/stageflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor applies satisfied rules: it updates the candidate's stage, appends
// the audit record, and dispatches notifications without waiting for them.
type Executor struct {
	candidates   persistence.CandidateRepository
	executions   persistence.ExecutionRepository
	activityLogs persistence.ActivityLogRepository

	dispatcher notification.Dispatcher
	publisher  eventbus.EventPublisher
	stages     models.StageCatalog
	window     time.Duration
	now        func() time.Time

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	inflight sync.WaitGroup
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDispatcher sets the notification dispatcher. Without one, notifications are not sent.
func WithDispatcher(dispatcher notification.Dispatcher) ExecutorOption {
	return func(x *Executor) {
		x.dispatcher = dispatcher
	}
}

// WithPublisher announces successful transitions on the event bus.
func WithPublisher(publisher eventbus.EventPublisher) ExecutorOption {
	return func(x *Executor) {
		x.publisher = publisher
	}
}

// WithDedupWindow overrides DefaultDedupWindow.
func WithDedupWindow(window time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.window = window
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ExecutorOption {
	return func(x *Executor) {
		x.now = now
	}
}

// WithStageCatalog sets the labels included in notification requests.
func WithStageCatalog(stages models.StageCatalog) ExecutorOption {
	return func(x *Executor) {
		x.stages = stages
	}
}

func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(x *Executor) {
		x.metrics = m
	}
}

func WithExecutorTracer(tracer trace.Tracer) ExecutorOption {
	return func(x *Executor) {
		x.tracer = tracer
	}
}

func NewExecutor(logger *slog.Logger, store persistence.Persistence, opts ...ExecutorOption) *Executor {
	x := &Executor{
		candidates:   store.CandidateRepository(),
		executions:   store.ExecutionRepository(),
		activityLogs: store.ActivityLogRepository(),
		stages:       models.DefaultStageCatalog(),
		window:       DefaultDedupWindow,
		now:          time.Now,
		logger:       logger.With("module", "executor"),
		tracer:       otelhelper.NoopTracer(),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Execute applies rule to candidate. Only a failed stage update is returned as
// an error; audit log and notification failures are logged and never undo the
// transition.
func (x *Executor) Execute(
	ctx context.Context,
	candidate *models.Candidate,
	rule *models.TransitionRule,
	evaluation *Evaluation,
	triggerType models.TriggerType,
) (*Outcome, error) {
	ctx, span := otelhelper.StartSpan(ctx, x.tracer, "transitions.execute",
		attribute.String(otelhelper.CandidateIDKey, candidate.ID),
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.FromStageKey, rule.FromStage),
		attribute.String(otelhelper.ToStageKey, rule.ToStage),
	)
	defer span.End()

	logger := x.logger.With("candidate_id", candidate.ID, "rule_id", rule.ID)
	outcome := newOutcome(candidate, rule)
	now := x.now()

	recent, err := x.executions.RecentSuccess(ctx, candidate.ID, rule.FromStage, rule.ToStage, now.Add(-x.window))
	if err != nil {
		logger.WarnContext(ctx, "duplicate guard lookup failed, continuing", "error", err)
	} else if recent != nil {
		logger.InfoContext(ctx, "transition already executed recently", "execution_id", recent.ID)

		outcome.Status = StatusSkipped
		outcome.Reason = AlreadyExecutedReason
		outcome.Notification = NotificationNotRequested
		otelhelper.SetStatus(span, string(outcome.Status))

		return &outcome, nil
	}

	oldStage := candidate.Status

	err = x.candidates.UpdateStage(ctx, candidate.ID, rule.ToStage, now)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, &TransitionError{
			Op:          "Execute",
			CandidateID: candidate.ID,
			RuleID:      rule.ID,
			Err:         fmt.Errorf("%w: %w", ErrStageUpdate, err),
		}
	}

	logger.InfoContext(ctx, "candidate stage updated", "from_stage", oldStage, "to_stage", rule.ToStage)

	execution := &models.TransitionExecution{
		CandidateID:   candidate.ID,
		RuleID:        rule.ID,
		FromStage:     rule.FromStage,
		ToStage:       rule.ToStage,
		ExecutionType: triggerType.ExecutionType(),
		TriggeredBy:   triggerType.TriggeredBy(),
		Result:        models.ExecutionResultSuccess,
		ExecutedAt:    now,
	}

	if evaluation != nil {
		execution.ConditionsMet = evaluation.ConditionsMet
	}

	activity, err := x.activityLogs.LatestTransition(ctx, candidate.ID, oldStage, rule.ToStage)
	if err != nil {
		logger.WarnContext(ctx, "activity log lookup failed", "error", err)
	} else if activity != nil {
		execution.ActivityLogID = &activity.ID
	}

	err = x.executions.Create(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "failed to record transition execution", "error", err)
	} else {
		outcome.ExecutionID = execution.ID
		span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))
	}

	outcome.Status = StatusSuccess
	outcome.Notification = NotificationNotRequested
	otelhelper.SetStatus(span, string(outcome.Status))

	x.announce(ctx, logger, &outcome, triggerType)

	if rule.AutoSendNotification {
		if x.dispatcher == nil {
			logger.WarnContext(ctx, "rule requests a notification but no dispatcher is configured")
		} else {
			outcome.Notification = NotificationPending
			x.notify(ctx, logger, outcome.ExecutionID, notification.Request{
				CandidateID:   candidate.ID,
				Type:          rule.NotificationType(),
				OldStage:      oldStage,
				NewStage:      rule.ToStage,
				OldStageLabel: x.stages.Label(oldStage),
				NewStageLabel: x.stages.Label(rule.ToStage),
			})
		}
	}

	return &outcome, nil
}

// Wait blocks until every in-flight notification has completed and its audit
// record has been backfilled.
func (x *Executor) Wait() {
	x.inflight.Wait()
}

func (x *Executor) announce(ctx context.Context, logger *slog.Logger, outcome *Outcome, triggerType models.TriggerType) {
	if x.publisher == nil {
		return
	}

	err := x.publisher.Publish(ctx, outcome.CandidateID, events.TransitionExecuted{
		BaseEvent:   events.NewBaseEvent(events.TransitionExecutedType),
		CandidateID: outcome.CandidateID,
		RuleID:      outcome.RuleID,
		RuleName:    outcome.RuleName,
		FromStage:   outcome.FromStage,
		ToStage:     outcome.ToStage,
		ExecutionID: outcome.ExecutionID,
		TriggerType: string(triggerType),
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to publish transition event", "error", err)
	}
}

// notify dispatches in a detached goroutine. The request context may end
// before dispatch completes; the goroutine keeps its values but not its cancellation.
func (x *Executor) notify(ctx context.Context, logger *slog.Logger, executionID string, req notification.Request) {
	detached := context.WithoutCancel(ctx)

	x.inflight.Add(1)

	go func() {
		defer x.inflight.Done()

		id, err := x.dispatch(detached, req)
		if err != nil {
			logger.WarnContext(detached, "notification dispatch failed", "error", err)
			x.metrics.IncrementNotification("failed")
		} else {
			logger.InfoContext(detached, "notification dispatched", "notification_id", id)
			x.metrics.IncrementNotification("sent")
		}

		if executionID == "" {
			return
		}

		var notificationID *string
		if err == nil && id != "" {
			notificationID = &id
		}

		err = x.executions.UpdateNotification(detached, executionID, err == nil, notificationID)
		if err != nil {
			logger.ErrorContext(detached, "failed to backfill notification outcome", "execution_id", executionID, "error", err)
		}
	}()
}

func (x *Executor) dispatch(ctx context.Context, req notification.Request) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification dispatcher panicked: %v", r)
		}
	}()

	return x.dispatcher.Dispatch(ctx, req)
}
