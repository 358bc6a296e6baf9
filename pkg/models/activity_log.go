package models

import "time"

// ActivityLog is written by the store whenever a candidate's stage changes.
type ActivityLog struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidate_id"`
	OldStage    string    `json:"old_stage"`
	NewStage    string    `json:"new_stage"`
	CreatedAt   time.Time `json:"created_at"`
}
