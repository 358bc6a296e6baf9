// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"time"

	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/notification"
	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/transitions"
	"go.opentelemetry.io/otel/trace"
)

// EngineConfig holds the optional collaborators of the transition engine.
// Zero values fall back to defaults.
type EngineConfig struct {
	DedupWindow time.Duration
	Stages      models.StageCatalog
	Dispatcher  notification.Dispatcher
	Publisher   eventbus.EventPublisher
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
}

// Engine bundles the orchestrator with the executor it drives, so callers can
// drain pending notifications on shutdown.
type Engine struct {
	Orchestrator *transitions.Orchestrator
	Executor     *transitions.Executor
}

func NewEngine(logger *slog.Logger, store persistence.Persistence, config EngineConfig) *Engine {
	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	opts := []transitions.ExecutorOption{
		transitions.WithDispatcher(config.Dispatcher),
		transitions.WithPublisher(config.Publisher),
		transitions.WithExecutorMetrics(config.Metrics),
		transitions.WithExecutorTracer(tracer),
	}

	if config.DedupWindow > 0 {
		opts = append(opts, transitions.WithDedupWindow(config.DedupWindow))
	}

	if len(config.Stages.Stages) > 0 {
		opts = append(opts, transitions.WithStageCatalog(config.Stages))
	}

	executor := transitions.NewExecutor(logger, store, opts...)
	evaluator := transitions.NewEvaluator(logger, store.ConditionChecker(), tracer)

	orchestrator := transitions.NewOrchestrator(
		logger,
		store,
		evaluator,
		executor,
		transitions.WithMetrics(config.Metrics),
		transitions.WithTracer(tracer),
	)

	return &Engine{
		Orchestrator: orchestrator,
		Executor:     executor,
	}
}

// Close waits for in-flight notifications.
func (e *Engine) Close() {
	e.Executor.Wait()
}
