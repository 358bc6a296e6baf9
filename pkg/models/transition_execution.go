package models

import "time"

type ExecutionType string

const (
	ExecutionTypeAutomatic ExecutionType = "automatic"
	ExecutionTypeManual    ExecutionType = "manual"
)

type TriggeredBy string

const (
	TriggeredBySystem TriggeredBy = "system"
	TriggeredByUser   TriggeredBy = "user"
)

// ExecutionResult is the outcome recorded for a transition attempt.
type ExecutionResult string

const (
	ExecutionResultSuccess ExecutionResult = "success"
	ExecutionResultError   ExecutionResult = "error"
	ExecutionResultSkipped ExecutionResult = "skipped"
)

// TransitionExecution is the append-only audit record of one transition attempt.
// Only NotificationSent and NotificationID are written after creation.
type TransitionExecution struct {
	ID               string          `json:"id"`
	CandidateID      string          `json:"candidate_id"`
	RuleID           string          `json:"rule_id"`
	FromStage        string          `json:"from_stage"`
	ToStage          string          `json:"to_stage"`
	ExecutionType    ExecutionType   `json:"execution_type"`
	TriggeredBy      TriggeredBy     `json:"triggered_by"`
	ConditionsMet    map[string]any  `json:"conditions_met,omitempty"`
	Result           ExecutionResult `json:"execution_result"`
	ActivityLogID    *string         `json:"activity_log_id,omitempty"`
	NotificationSent bool            `json:"notification_sent"`
	NotificationID   *string         `json:"notification_id,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	ExecutedAt       time.Time       `json:"executed_at"`
}
