package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/hirezen/stageflow/pkg/cmd"
	"github.com/hirezen/stageflow/pkg/log"
	"github.com/hirezen/stageflow/pkg/receivers/kafka"
	"github.com/hirezen/stageflow/pkg/receivers/queue"
	cli "github.com/urfave/cli/v3"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL of the candidate event queue (disabled when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "redis-queue",
			Usage:   "Redis list holding candidate events",
			Value:   queue.DefaultQueue,
			Sources: cli.EnvVars("REDIS_QUEUE"),
		},
		&cli.StringFlag{
			Name:    "kafka-topics",
			Usage:   "Comma separated Kafka topics carrying plain candidate messages (disabled when empty)",
			Sources: cli.EnvVars("KAFKA_TOPICS"),
		},
		&cli.StringFlag{
			Name:    "kafka-consumer-group",
			Usage:   "Consumer group for the Kafka topics",
			Value:   kafka.DefaultConsumerGroup,
			Sources: cli.EnvVars("KAFKA_CONSUMER_GROUP"),
		},
		&cli.StringSliceFlag{
			Name:    "schedule",
			Usage:   `Periodic sweep "<cron>=<stage>[,<stage>|rule:<id>]", repeatable`,
			Sources: cli.EnvVars("SCHEDULES"),
		},
	}
	flags = append(flags, cmd.RuntimeFlags()...)
	flags = append(flags, cmd.LogFlags()...)

	command := &cli.Command{
		Name:                  "stageflow-worker",
		Usage:                 "Evaluate candidate transitions from events, queues and schedules",
		EnableShellCompletion: true,
		// Schedules carry commas in their target lists.
		DisableSliceFlagSeparator: true,
		Flags:                     flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.SetupWithFormat(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("stageflow-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing stageflow worker")

			runtime, err := cmd.NewRuntime(ctx, logger, command, "stageflow-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := runtime.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
				}
			}()

			set, err := buildReceivers(ctx, logger, command, runtime)
			if err != nil {
				return err
			}

			defer func() {
				if err := set.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close redis client", "error", err)
				}
			}()

			return NewWorkerManager(workerID, logger, set.receivers...).Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
