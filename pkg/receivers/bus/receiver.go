// Package bus evaluates candidates named by candidate.event messages on the event bus.
package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/events"
	"github.com/hirezen/stageflow/pkg/receivers"
)

type Receiver struct {
	bus          eventbus.EventSubscriber
	orchestrator receivers.Orchestrator
	logger       *slog.Logger
}

func NewReceiver(logger *slog.Logger, bus eventbus.EventSubscriber, orchestrator receivers.Orchestrator) *Receiver {
	return &Receiver{
		bus:          bus,
		orchestrator: orchestrator,
		logger:       logger.With("module", "event_receiver"),
	}
}

// Start registers the candidate event handler and begins consuming.
func (r *Receiver) Start(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting event receiver", "event_type", events.CandidateEventType)

	err := r.bus.Handle(events.CandidateEventType, r.handle)
	if err != nil {
		return fmt.Errorf("failed to register candidate event handler: %w", err)
	}

	err = r.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	return nil
}

// Stop is a no-op; the bus owner closes the subscription.
func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "stopping event receiver")

	return nil
}

// handle acknowledges messages that can never succeed and returns other
// failures so the bus redelivers them.
func (r *Receiver) handle(ctx context.Context, event any) error {
	candidateEvent, ok := event.(*events.CandidateEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	msg := receivers.CandidateMessage{
		CandidateID: candidateEvent.CandidateID,
		EventData:   candidateEvent.EventData,
	}

	if msg.CandidateID == "" {
		r.logger.WarnContext(ctx, "dropping candidate event", "event_id", candidateEvent.ID, "error", receivers.ErrMissingCandidateID)

		return nil
	}

	err := receivers.EvaluateCandidate(ctx, r.logger, r.orchestrator, msg)
	if err != nil {
		if receivers.Permanent(err) {
			r.logger.WarnContext(ctx, "dropping candidate event", "event_id", candidateEvent.ID, "candidate_id", msg.CandidateID, "error", err)

			return nil
		}

		return err
	}

	return nil
}
