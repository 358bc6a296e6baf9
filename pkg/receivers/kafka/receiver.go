// Package kafka consumes candidate messages published by other systems on
// plain Kafka topics, outside the stageflow event envelope.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/hirezen/stageflow/pkg/receivers"
)

// DefaultConsumerGroup is used when no consumer group is configured.
const DefaultConsumerGroup = "stageflow-candidate-events"

type Config struct {
	Brokers       []string
	Topics        []string
	ConsumerGroup string
}

func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("at least one kafka broker is required")
	}

	if len(c.Topics) == 0 {
		return errors.New("at least one kafka topic is required")
	}

	return nil
}

type Receiver struct {
	config       Config
	orchestrator receivers.Orchestrator
	logger       *slog.Logger

	consumer sarama.ConsumerGroup
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewReceiver(logger *slog.Logger, config Config, orchestrator receivers.Orchestrator) (*Receiver, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	if config.ConsumerGroup == "" {
		config.ConsumerGroup = DefaultConsumerGroup
	}

	return &Receiver{
		config:       config,
		orchestrator: orchestrator,
		logger:       logger.With("module", "kafka_receiver", "consumer_group", config.ConsumerGroup),
	}, nil
}

func (r *Receiver) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting kafka receiver", "topics", r.config.Topics)

	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Session.Timeout = 10 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumerGroup(r.config.Brokers, r.config.ConsumerGroup, config)
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	r.consumer = consumer
	r.done = make(chan struct{})
	ctx, r.cancel = context.WithCancel(ctx)

	go r.consume(ctx)
	go r.watchErrors(ctx)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer close(r.done)

	handler := &consumerHandler{receiver: r}

	for ctx.Err() == nil {
		err := r.consumer.Consume(ctx, r.config.Topics, handler)
		if err != nil && !errors.Is(err, sarama.ErrClosedConsumerGroup) {
			r.logger.ErrorContext(ctx, "kafka consumer error", "error", err)

			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}
	}
}

func (r *Receiver) watchErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-r.consumer.Errors():
			if !ok {
				return
			}

			r.logger.ErrorContext(ctx, "kafka consumer group error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "stopping kafka receiver")

	if r.cancel == nil {
		return nil
	}

	r.cancel()
	<-r.done

	return r.consumer.Close()
}

// handleMessage evaluates one message. Undecodable messages are dropped; the
// message key stands in for a missing candidateId.
func (r *Receiver) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	logger := r.logger.With("topic", message.Topic, "partition", message.Partition, "offset", message.Offset)

	msg, err := receivers.DecodeCandidateMessage(message.Value, string(message.Key))
	if err != nil {
		logger.WarnContext(ctx, "dropping kafka message", "error", err)

		return
	}

	err = receivers.EvaluateCandidate(ctx, logger, r.orchestrator, msg)
	if err != nil {
		logger.ErrorContext(ctx, "candidate evaluation failed", "candidate_id", msg.CandidateID, "error", err)
	}
}

// consumerHandler implements sarama.ConsumerGroupHandler.
type consumerHandler struct {
	receiver *Receiver
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error {
	h.receiver.logger.Info("kafka consumer group session started")

	return nil
}

func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.receiver.logger.Info("kafka consumer group session ended")

	return nil
}

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			h.receiver.handleMessage(session.Context(), message)
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
