package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCandidateNotFound indicates a candidate was not found by the given identifier.
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrRuleNotFound indicates a transition rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("transition rule not found")

	// ErrExecutionNotFound indicates a transition execution was not found.
	ErrExecutionNotFound = errors.New("transition execution not found")
)

// CandidateError wraps candidate-related errors with additional context.
type CandidateError struct {
	Op          string // Operation being performed (e.g., "GetByID", "UpdateStage")
	CandidateID string
	Err         error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s operation failed for candidate %s: %v", e.Op, e.CandidateID, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for candidate errors.
func (e *CandidateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCandidateError creates a new candidate error with context.
func NewCandidateError(op, candidateID string, err error) *CandidateError {
	return &CandidateError{
		Op:          op,
		CandidateID: candidateID,
		Err:         err,
	}
}

// RuleError wraps rule-related errors with additional context.
type RuleError struct {
	Op     string
	RuleID string
	Err    error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a new rule error with context.
func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{
		Op:     op,
		RuleID: ruleID,
		Err:    err,
	}
}

// IsCandidateNotFound checks if an error indicates a candidate was not found.
func IsCandidateNotFound(err error) bool {
	return errors.Is(err, ErrCandidateNotFound)
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
