package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/config"
	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/metrics"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/otelhelper"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

// LogFlags are the logging flags shared by every stageflow binary.
func LogFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// RuntimeFlags configure the store, the event bus and the transition engine.
func RuntimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (postgres://..., memory://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel, none)",
			Value:   "none",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka broker addresses",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "notifier",
			Usage:   "Notification dispatcher (http, eventbus, log, none)",
			Value:   "log",
			Sources: cli.EnvVars("NOTIFIER_TYPE"),
		},
		&cli.StringFlag{
			Name:    "notifier-url",
			Usage:   "Endpoint of the notification service for the http notifier",
			Sources: cli.EnvVars("NOTIFIER_URL"),
		},
		&cli.DurationFlag{
			Name:    "dedup-window",
			Usage:   "Window in which a repeated transition is skipped",
			Value:   transitions.DefaultDedupWindow,
			Sources: cli.EnvVars("DEDUP_WINDOW"),
		},
		&cli.StringFlag{
			Name:    "pipeline-file",
			Usage:   "YAML pipeline file providing stage labels",
			Sources: cli.EnvVars("PIPELINE_FILE"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

// Runtime holds everything a stageflow process shares: the store, the event bus,
// the transition engine and the metrics registry.
type Runtime struct {
	Store    persistence.Persistence
	EventBus eventbus.EventBus
	Engine   *Engine
	Stages   models.StageCatalog
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	logger   *slog.Logger
	shutdown otelhelper.ShutdownFunc
}

// NewRuntime builds a Runtime from the flags in RuntimeFlags. On error every
// resource opened so far is released.
func NewRuntime(ctx context.Context, logger *slog.Logger, command *cli.Command, serviceName string) (*Runtime, error) {
	rt := &Runtime{logger: logger}

	if err := rt.init(ctx, command, serviceName); err != nil {
		if closeErr := rt.Close(ctx); closeErr != nil {
			logger.ErrorContext(ctx, "Failed to release runtime", "error", closeErr)
		}

		return nil, err
	}

	return rt, nil
}

func (rt *Runtime) init(ctx context.Context, command *cli.Command, serviceName string) error {
	var (
		tracer trace.Tracer
		err    error
	)

	if command.Bool("otel") {
		tracer, rt.shutdown, err = otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	rt.Stages, err = config.LoadStageCatalogOrDefault(command.String("pipeline-file"))
	if err != nil {
		return fmt.Errorf("failed to load stage catalog: %w", err)
	}

	rt.Store, err = NewPersistence(ctx, rt.logger, command.String("database-url"))
	if err != nil {
		return err
	}

	rt.EventBus, err = NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), rt.logger)
	if err != nil {
		return err
	}

	var publisher eventbus.EventPublisher
	if rt.EventBus != nil {
		publisher = rt.EventBus
	}

	dispatcher, err := NewDispatcher(command.String("notifier"), command.String("notifier-url"), publisher, rt.logger)
	if err != nil {
		return err
	}

	rt.Registry = prometheus.NewRegistry()
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.Metrics = metrics.New(rt.Registry)

	rt.Engine = NewEngine(rt.logger, rt.Store, EngineConfig{
		DedupWindow: command.Duration("dedup-window"),
		Stages:      rt.Stages,
		Dispatcher:  dispatcher,
		Publisher:   publisher,
		Metrics:     rt.Metrics,
		Tracer:      tracer,
	})

	return nil
}

// Close drains pending notifications, then closes the event bus, the store and
// the tracer provider.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error

	if rt.Engine != nil {
		rt.Engine.Close()
	}

	if rt.EventBus != nil {
		if err := rt.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event bus: %w", err))
		}
	}

	if rt.Store != nil {
		if err := rt.Store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close persistence: %w", err))
		}
	}

	if rt.shutdown != nil {
		if err := rt.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}
