package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/channels/kafka"
	"github.com/hirezen/stageflow/pkg/cmd"
	"github.com/hirezen/stageflow/pkg/receivers"
	"github.com/hirezen/stageflow/pkg/receivers/bus"
	kafkareceiver "github.com/hirezen/stageflow/pkg/receivers/kafka"
	"github.com/hirezen/stageflow/pkg/receivers/queue"
	"github.com/hirezen/stageflow/pkg/receivers/schedule"
	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"
)

// receiverSet is the receivers enabled by the command flags, plus the
// resources they share.
type receiverSet struct {
	receivers []receivers.Receiver
	redis     *redis.Client
}

func (s *receiverSet) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}

	return nil
}

// buildReceivers enables one receiver per configured source: the event bus,
// a redis queue, plain kafka topics and cron schedules.
func buildReceivers(ctx context.Context, logger *slog.Logger, command *cli.Command, runtime *cmd.Runtime) (*receiverSet, error) {
	set := &receiverSet{}
	orchestrator := runtime.Engine.Orchestrator

	if runtime.EventBus != nil {
		set.receivers = append(set.receivers, bus.NewReceiver(logger, runtime.EventBus, orchestrator))
	}

	if url := command.String("redis-url"); url != "" {
		client, err := queue.NewClient(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		set.redis = client

		receiver, err := queue.NewReceiver(logger, client, command.String("redis-queue"), orchestrator)
		if err != nil {
			_ = set.Close()

			return nil, err
		}

		set.receivers = append(set.receivers, receiver)
	}

	if topics := kafka.ParseBrokers(command.String("kafka-topics")); len(topics) > 0 {
		receiver, err := kafkareceiver.NewReceiver(logger, kafkareceiver.Config{
			Brokers:       kafka.ParseBrokers(command.String("kafka-brokers")),
			Topics:        topics,
			ConsumerGroup: command.String("kafka-consumer-group"),
		}, orchestrator)
		if err != nil {
			_ = set.Close()

			return nil, err
		}

		set.receivers = append(set.receivers, receiver)
	}

	if raws := command.StringSlice("schedule"); len(raws) > 0 {
		schedules, err := schedule.ParseSchedules(raws)
		if err != nil {
			_ = set.Close()

			return nil, err
		}

		set.receivers = append(set.receivers, schedule.NewReceiver(logger, orchestrator, schedules))
	}

	return set, nil
}
