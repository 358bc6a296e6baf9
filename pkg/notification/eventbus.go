package notification

import (
	"context"
	"fmt"

	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/events"
)

// EventBusDispatcher publishes notification.requested events for a downstream
// mailer. The returned identifier is the event ID.
type EventBusDispatcher struct {
	publisher eventbus.EventPublisher
}

func NewEventBusDispatcher(publisher eventbus.EventPublisher) *EventBusDispatcher {
	return &EventBusDispatcher{publisher: publisher}
}

func (d *EventBusDispatcher) Dispatch(ctx context.Context, req Request) (string, error) {
	event := events.NotificationRequested{
		BaseEvent:     events.NewBaseEvent(events.NotificationRequestedType),
		CandidateID:   req.CandidateID,
		Template:      req.Type,
		OldStage:      req.OldStage,
		NewStage:      req.NewStage,
		OldStageLabel: req.OldStageLabel,
		NewStageLabel: req.NewStageLabel,
	}

	err := d.publisher.Publish(ctx, req.CandidateID, event)
	if err != nil {
		return "", fmt.Errorf("failed to publish notification request: %w", err)
	}

	return event.ID, nil
}
