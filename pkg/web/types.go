package web

import (
	"github.com/hirezen/stageflow/pkg/models"
	"github.com/hirezen/stageflow/pkg/transitions"
)

// EvaluateTransitionsRequest selects an evaluation mode through exactly one of
// CandidateID, RuleID, or FromStage.
type EvaluateTransitionsRequest struct {
	CandidateID string         `json:"candidateId,omitempty" validate:"omitempty,max=255"`
	RuleID      string         `json:"ruleId,omitempty"      validate:"omitempty,max=255"`
	FromStage   string         `json:"fromStage,omitempty"   validate:"omitempty,max=255"`
	TriggerType string         `json:"triggerType,omitempty" validate:"omitempty,oneof=event scheduled manual"`
	EventData   map[string]any `json:"eventData,omitempty"`
}

// ToRequest converts the body into an orchestrator request.
func (r EvaluateTransitionsRequest) ToRequest() transitions.Request {
	return transitions.Request{
		CandidateID: r.CandidateID,
		RuleID:      r.RuleID,
		FromStage:   r.FromStage,
		TriggerType: models.TriggerType(r.TriggerType),
		EventData:   r.EventData,
	}
}

// ErrorResponse is the body of a failed evaluation.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type ExecutionsResponse struct {
	CandidateID string                        `json:"candidate_id"`
	Executions  []*models.TransitionExecution `json:"executions"`
}

type RulesResponse struct {
	Rules []*models.TransitionRule `json:"rules"`
}
