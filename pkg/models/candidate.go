// Package models defines the domain models of the candidate pipeline transition engine.
package models

import "time"

// Candidate is an applicant moving through the hiring pipeline.
// Status holds the identifier of the candidate's current stage.
type Candidate struct {
	ID         string         `json:"id"                   yaml:"id"         validate:"required"`
	FullName   string         `json:"full_name"            yaml:"full_name"`
	Email      string         `json:"email"                yaml:"email"      validate:"omitempty,email"`
	Status     string         `json:"status"               yaml:"status"     validate:"required"`
	JobID      string         `json:"job_id,omitempty"     yaml:"job_id"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes"`
	CreatedAt  time.Time      `json:"created_at"           yaml:"-"`
	UpdatedAt  time.Time      `json:"updated_at"           yaml:"-"`
}
