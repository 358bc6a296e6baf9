// Package notification dispatches candidate notifications after a stage transition.
package notification

import (
	"context"
	"errors"
)

// ErrDispatchFailed indicates the notification service rejected a request.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// Request describes one notification to send.
type Request struct {
	CandidateID   string `json:"candidateId"`
	Type          string `json:"type"`
	OldStage      string `json:"oldStage"`
	NewStage      string `json:"newStage"`
	OldStageLabel string `json:"oldStageLabel,omitempty"`
	NewStageLabel string `json:"newStageLabel,omitempty"`
}

// Dispatcher sends a notification and returns the downstream identifier, which
// may be empty when the service does not return one.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (string, error)
}
