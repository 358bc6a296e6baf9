// Package receivers turns external signals into transition evaluations.
package receivers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/persistence"
	"github.com/hirezen/stageflow/pkg/transitions"
)

// ErrMissingCandidateID is returned for candidate messages without a candidate.
var ErrMissingCandidateID = errors.New("candidate message has no candidateId")

// Orchestrator runs a transition evaluation.
type Orchestrator interface {
	Evaluate(ctx context.Context, req transitions.Request) (*transitions.Result, error)
}

// Receiver listens to a source until stopped.
type Receiver interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// CandidateMessage is the payload carried by queues and streams.
type CandidateMessage struct {
	CandidateID string         `json:"candidateId"`
	EventData   map[string]any `json:"eventData,omitempty"`
}

// DecodeCandidateMessage parses a candidate message. fallbackID is used when
// the payload names no candidate, such as a Kafka message key.
func DecodeCandidateMessage(payload []byte, fallbackID string) (CandidateMessage, error) {
	var msg CandidateMessage

	err := json.Unmarshal(payload, &msg)
	if err != nil {
		return CandidateMessage{}, fmt.Errorf("failed to decode candidate message: %w", err)
	}

	if msg.CandidateID == "" {
		msg.CandidateID = fallbackID
	}

	if msg.CandidateID == "" {
		return CandidateMessage{}, ErrMissingCandidateID
	}

	return msg, nil
}

// EvaluateCandidate runs the by-candidate flow with the event trigger.
func EvaluateCandidate(ctx context.Context, logger *slog.Logger, orchestrator Orchestrator, msg CandidateMessage) error {
	result, err := orchestrator.Evaluate(ctx, transitions.Request{
		CandidateID: msg.CandidateID,
		TriggerType: models.TriggerTypeEvent,
		EventData:   msg.EventData,
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "candidate evaluated",
		"candidate_id", msg.CandidateID,
		"current_stage", result.CurrentStage,
		"transitions", len(result.Transitions),
	)

	return nil
}

// Permanent reports whether retrying the evaluation cannot succeed.
func Permanent(err error) bool {
	return errors.Is(err, ErrMissingCandidateID) ||
		transitions.IsInvalidRequest(err) ||
		persistence.IsCandidateNotFound(err)
}
