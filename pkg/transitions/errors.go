package transitions

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request. Reported as 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRuleDisabled indicates a rule was addressed directly but is disabled.
	ErrRuleDisabled = errors.New("transition rule is disabled")

	// ErrConditionEvaluation indicates the store could not evaluate a rule's conditions.
	ErrConditionEvaluation = errors.New("condition evaluation failed")

	// ErrStageUpdate indicates the candidate's stage could not be written.
	ErrStageUpdate = errors.New("stage update failed")
)

// TransitionError wraps an engine failure with the pair it concerns.
type TransitionError struct {
	Op          string
	CandidateID string
	RuleID      string
	Err         error
}

func (e *TransitionError) Error() string {
	switch {
	case e.CandidateID != "" && e.RuleID != "":
		return fmt.Sprintf("%s failed for candidate %s and rule %s: %v", e.Op, e.CandidateID, e.RuleID, e.Err)
	case e.CandidateID != "":
		return fmt.Sprintf("%s failed for candidate %s: %v", e.Op, e.CandidateID, e.Err)
	case e.RuleID != "":
		return fmt.Sprintf("%s failed for rule %s: %v", e.Op, e.RuleID, e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsInvalidRequest checks if an error is an input error.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
