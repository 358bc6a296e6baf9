// Package transitions implements the candidate stage-transition engine: the
// condition evaluator, the transition executor, and the orchestrator that
// drives them for a candidate, a rule, or a stage.
package transitions

import (
	"fmt"
	"time"

	"github.com/hirezen/stageflow/pkg/models"
)

// DefaultDedupWindow is how long a successful transition suppresses a repeat
// of the same candidate and stage pair.
const DefaultDedupWindow = 60 * time.Second

// NoApplicableRulesMessage is reported when a candidate's stage has no enabled rules.
const NoApplicableRulesMessage = "No applicable rules found for candidate's current stage"

// AlreadyExecutedReason is reported for transitions suppressed by the duplicate guard.
const AlreadyExecutedReason = "Transition already executed recently"

// Mode selects which pairs the orchestrator evaluates.
type Mode string

const (
	ModeCandidate Mode = "candidate"
	ModeRule      Mode = "rule"
	ModeStage     Mode = "stage"
)

// Status is the per-pair outcome.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusConditionsNotMet Status = "conditions_not_met"
	StatusError            Status = "error"
	StatusSkipped          Status = "skipped"
)

// NotificationStatus reports what happened to the notification when the
// outcome was produced. Dispatch completes asynchronously.
type NotificationStatus string

const (
	NotificationPending      NotificationStatus = "pending"
	NotificationNotRequested NotificationStatus = "not_requested"
)

// Request selects an evaluation mode through exactly one of CandidateID,
// RuleID, or FromStage.
type Request struct {
	CandidateID string
	RuleID      string
	FromStage   string
	TriggerType models.TriggerType
	EventData   map[string]any
}

// Mode resolves the request's mode. Zero or several discriminators are an input error.
func (r Request) Mode() (Mode, error) {
	var (
		mode  Mode
		count int
	)

	if r.CandidateID != "" {
		mode = ModeCandidate
		count++
	}

	if r.RuleID != "" {
		mode = ModeRule
		count++
	}

	if r.FromStage != "" {
		mode = ModeStage
		count++
	}

	switch count {
	case 0:
		return "", fmt.Errorf("%w: one of candidateId, ruleId or fromStage is required", ErrInvalidRequest)
	case 1:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: only one of candidateId, ruleId or fromStage may be set", ErrInvalidRequest)
	}
}

// Evaluation is the condition evaluator's verdict for one candidate and rule.
type Evaluation struct {
	ShouldTransition bool
	Reason           string
	ConditionsMet    map[string]any
}

// Outcome is the result of one candidate and rule pair.
type Outcome struct {
	RuleID           string             `json:"ruleId"`
	RuleName         string             `json:"ruleName"`
	CandidateID      string             `json:"candidateId"`
	Status           Status             `json:"status"`
	Reason           string             `json:"reason,omitempty"`
	Error            string             `json:"error,omitempty"`
	FromStage        string             `json:"fromStage"`
	ToStage          string             `json:"toStage"`
	Notification     NotificationStatus `json:"notification,omitempty"`
	ExecutionID      string             `json:"executionId,omitempty"`
	RequiresApproval bool               `json:"requiresApproval,omitempty"`
}

// Result aggregates the outcomes of one orchestrator request.
type Result struct {
	Success             bool      `json:"success"`
	Mode                Mode      `json:"-"`
	CandidateID         string    `json:"candidateId,omitempty"`
	CurrentStage        string    `json:"currentStage,omitempty"`
	RuleID              string    `json:"ruleId,omitempty"`
	RuleName            string    `json:"ruleName,omitempty"`
	FromStage           string    `json:"fromStage,omitempty"`
	CandidatesProcessed *int      `json:"candidatesProcessed,omitempty"`
	RulesEvaluated      []string  `json:"rulesEvaluated,omitempty"`
	Message             string    `json:"message,omitempty"`
	Transitions         []Outcome `json:"transitions"`
}

func newOutcome(candidate *models.Candidate, rule *models.TransitionRule) Outcome {
	return Outcome{
		RuleID:           rule.ID,
		RuleName:         rule.Name,
		CandidateID:      candidate.ID,
		FromStage:        rule.FromStage,
		ToStage:          rule.ToStage,
		RequiresApproval: rule.RequireApproval,
	}
}
