package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hirezen/stageflow/pkg/channels/gochannel"
	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(slog.Default(), pub, sub)
	defer func() { _ = bus.Close() }()

	received := make(chan *events.CandidateEvent, 1)

	require.NoError(t, bus.Handle(events.CandidateEventType, func(_ context.Context, event any) error {
		received <- event.(*events.CandidateEvent)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	// Unhandled types are acknowledged and dropped.
	require.NoError(t, bus.Publish(ctx, "cand-0", events.TransitionExecuted{
		BaseEvent:   events.NewBaseEvent(events.TransitionExecutedType),
		CandidateID: "cand-0",
	}))

	require.NoError(t, bus.Publish(ctx, "cand-1", events.CandidateEvent{
		BaseEvent:   events.NewBaseEvent(events.CandidateEventType),
		CandidateID: "cand-1",
		EventData:   map[string]any{"exam": "passed"},
	}))

	select {
	case event := <-received:
		assert.Equal(t, "cand-1", event.CandidateID)
		assert.Equal(t, "passed", event.EventData["exam"])
	case <-time.After(5 * time.Second):
		t.Fatal("candidate event was not delivered")
	}

	assert.NotEmpty(t, bus.GenerateID())
}
