// Package queue consumes candidate messages from a Redis list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hirezen/stageflow/pkg/receivers"
	redis "github.com/redis/go-redis/v9"
)

// DefaultQueue is the list the receiver pops when none is configured.
const DefaultQueue = "stageflow:candidate-events"

const popTimeout = 1 * time.Second

type Receiver struct {
	client       redis.UniversalClient
	queue        string
	orchestrator receivers.Orchestrator
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver creates a receiver popping queue. The caller owns client.
func NewReceiver(logger *slog.Logger, client redis.UniversalClient, queue string, orchestrator receivers.Orchestrator) (*Receiver, error) {
	if client == nil {
		return nil, errors.New("queue receiver requires a redis client")
	}

	if queue == "" {
		queue = DefaultQueue
	}

	return &Receiver{
		client:       client,
		queue:        queue,
		orchestrator: orchestrator,
		logger:       logger.With("module", "queue_receiver", "queue", queue),
	}, nil
}

// NewClient connects to the Redis server at url, e.g. redis://localhost:6379/0.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (r *Receiver) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue receiver")

	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

// Stop ends consumption and waits for the message in flight.
func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "stopping queue receiver")

	if r.cancel != nil {
		r.cancel()
	}

	r.wg.Wait()

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "queue consumer stopped")

			return
		default:
			err := r.processMessage(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "error processing queue message", "error", err)

				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// processMessage pops one message and evaluates it. Messages are handled in
// order, one at a time.
func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, popTimeout, r.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	msg, err := receivers.DecodeCandidateMessage([]byte(result[1]), "")
	if err != nil {
		r.logger.WarnContext(ctx, "dropping queue message", "error", err)

		return nil
	}

	err = receivers.EvaluateCandidate(ctx, r.logger, r.orchestrator, msg)
	if err != nil {
		r.logger.ErrorContext(ctx, "candidate evaluation failed", "candidate_id", msg.CandidateID, "error", err)
	}

	return nil
}
