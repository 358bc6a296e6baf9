package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hirezen/stageflow/pkg/receivers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// WorkerManager runs a set of receivers until the context is cancelled or the
// process receives SIGINT or SIGTERM.
type WorkerManager struct {
	id        string
	logger    *slog.Logger
	receivers []receivers.Receiver
}

func NewWorkerManager(id string, logger *slog.Logger, receivers ...receivers.Receiver) *WorkerManager {
	return &WorkerManager{
		id:        id,
		logger:    logger.With("module", "worker_manager", "worker_id", id),
		receivers: receivers,
	}
}

var ErrNoReceivers = errors.New("no receivers configured")

func (w *WorkerManager) Start(ctx context.Context) error {
	if len(w.receivers) == 0 {
		return ErrNoReceivers
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w.logger.InfoContext(ctx, "Starting receivers", "count", len(w.receivers))

	started := make([]receivers.Receiver, 0, len(w.receivers))

	for _, receiver := range w.receivers {
		if err := receiver.Start(ctx); err != nil {
			w.stop(started)

			return fmt.Errorf("failed to start receiver %T: %w", receiver, err)
		}

		started = append(started, receiver)
	}

	w.logger.InfoContext(ctx, "Worker started")

	<-ctx.Done()

	w.logger.Info("Shutting down worker")

	return w.stop(started)
}

func (w *WorkerManager) stop(started []receivers.Receiver) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var g errgroup.Group

	for _, receiver := range started {
		g.Go(func() error {
			if err := receiver.Stop(ctx); err != nil {
				return fmt.Errorf("failed to stop receiver %T: %w", receiver, err)
			}

			return nil
		})
	}

	return g.Wait()
}
