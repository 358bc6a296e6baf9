// Package events defines the messages exchanged on the stageflow event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every stageflow event.
const Topic = "stageflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// CandidateEventType asks the engine to evaluate one candidate.
	CandidateEventType EventType = "candidate.event"

	// TransitionExecutedType announces a successful stage transition.
	TransitionExecutedType EventType = "transition.executed"

	// NotificationRequestedType asks a downstream mailer to notify a candidate.
	NotificationRequestedType EventType = "notification.requested"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent returns a BaseEvent with a fresh ID and the current time.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// CandidateEvent is an external signal about a candidate, such as a submitted
// assessment. It triggers a by-candidate evaluation.
type CandidateEvent struct {
	BaseEvent

	CandidateID string         `json:"candidate_id"`
	EventData   map[string]any `json:"event_data,omitempty"`
}

func (e CandidateEvent) GetType() EventType {
	return CandidateEventType
}

type TransitionExecuted struct {
	BaseEvent

	CandidateID string `json:"candidate_id"`
	RuleID      string `json:"rule_id"`
	RuleName    string `json:"rule_name"`
	FromStage   string `json:"from_stage"`
	ToStage     string `json:"to_stage"`
	ExecutionID string `json:"execution_id,omitempty"`
	TriggerType string `json:"trigger_type"`
}

func (e TransitionExecuted) GetType() EventType {
	return TransitionExecutedType
}

type NotificationRequested struct {
	BaseEvent

	CandidateID   string `json:"candidate_id"`
	Template      string `json:"template"`
	OldStage      string `json:"old_stage"`
	NewStage      string `json:"new_stage"`
	OldStageLabel string `json:"old_stage_label"`
	NewStageLabel string `json:"new_stage_label"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedType
}
