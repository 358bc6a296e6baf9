package events_test

import (
	"encoding/json"
	"testing"

	"github.com/hirezen/stageflow/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, events.CandidateEventType, events.CandidateEvent{}.GetType())
	assert.Equal(t, events.TransitionExecutedType, events.TransitionExecuted{}.GetType())
	assert.Equal(t, events.NotificationRequestedType, events.NotificationRequested{}.GetType())
}

func TestNewBaseEvent(t *testing.T) {
	t.Parallel()

	base := events.NewBaseEvent(events.TransitionExecutedType)

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, events.TransitionExecutedType, base.Type)
	assert.False(t, base.Timestamp.IsZero())
}

func TestCandidateEvent_JSONShape(t *testing.T) {
	t.Parallel()

	event := events.CandidateEvent{
		BaseEvent:   events.NewBaseEvent(events.CandidateEventType),
		CandidateID: "cand-1",
		EventData:   map[string]any{"exam": "submitted"},
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "cand-1", decoded["candidate_id"])
	assert.Equal(t, "candidate.event", decoded["type"])
	assert.Equal(t, map[string]any{"exam": "submitted"}, decoded["event_data"])
}
