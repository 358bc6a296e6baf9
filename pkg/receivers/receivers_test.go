package receivers_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hirezen/stageflow/pkg/mocks"
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/receivers"
	"github.com/hirezen/stageflow/pkg/transitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCandidateMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  string
		fallback string
		wantID   string
		wantErr  error
	}{
		{name: "payload id", payload: `{"candidateId":"c1","eventData":{"score":9}}`, wantID: "c1"},
		{name: "payload wins over key", payload: `{"candidateId":"c1"}`, fallback: "c2", wantID: "c1"},
		{name: "key fallback", payload: `{"eventData":{}}`, fallback: "c2", wantID: "c2"},
		{name: "no id", payload: `{}`, wantErr: receivers.ErrMissingCandidateID},
		{name: "invalid json", payload: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := receivers.DecodeCandidateMessage([]byte(tt.payload), tt.fallback)
			if tt.wantID == "" {
				require.Error(t, err)

				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, msg.CandidateID)
		})
	}
}

func TestEvaluateCandidate(t *testing.T) {
	t.Parallel()

	orchestrator := &mocks.MockOrchestrator{}
	orchestrator.On("Evaluate", context.Background(), transitions.Request{
		CandidateID: "c1",
		TriggerType: models.TriggerTypeEvent,
		EventData:   map[string]any{"source": "ats"},
	}).Return(&transitions.Result{Success: true, CandidateID: "c1"}, nil)

	err := receivers.EvaluateCandidate(context.Background(), slog.Default(), orchestrator, receivers.CandidateMessage{
		CandidateID: "c1",
		EventData:   map[string]any{"source": "ats"},
	})
	require.NoError(t, err)
	orchestrator.AssertExpectations(t)
}

func TestPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, receivers.Permanent(receivers.ErrMissingCandidateID))
	assert.True(t, receivers.Permanent(transitions.ErrInvalidRequest))
	assert.True(t, receivers.Permanent(persistence.NewCandidateError("GetByID", "c1", persistence.ErrCandidateNotFound)))
	assert.False(t, receivers.Permanent(errors.New("connection refused")))
}
