package models

import "time"

// DefaultNotificationTemplate is used when a rule does not name a template.
const DefaultNotificationTemplate = "stage_change"

// Condition is a declarative predicate document. The engine never interprets
// it; the store that owns the rule evaluates it.
type Condition map[string]any

// TransitionRule moves candidates from FromStage to ToStage once its
// conditions are satisfied.
type TransitionRule struct {
	ID                   string    `json:"id"                              yaml:"id"                     validate:"required"`
	Name                 string    `json:"name"                            yaml:"name"                   validate:"required"`
	FromStage            string    `json:"from_stage"                      yaml:"from_stage"             validate:"required"`
	ToStage              string    `json:"to_stage"                        yaml:"to_stage"               validate:"required,nefield=FromStage"`
	Enabled              bool      `json:"enabled"                         yaml:"enabled"`
	Conditions           Condition `json:"conditions,omitempty"            yaml:"conditions"`
	AutoSendNotification bool      `json:"auto_send_notification"          yaml:"auto_send_notification"`
	NotificationTemplate string    `json:"notification_template,omitempty" yaml:"notification_template"`
	// RequireApproval is stored for administrators but not enforced by the engine.
	RequireApproval bool      `json:"require_approval" yaml:"require_approval"`
	CreatedAt       time.Time `json:"created_at"       yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at"       yaml:"-"`
}

// NotificationType returns the template to dispatch for this rule.
func (r *TransitionRule) NotificationType() string {
	if r.NotificationTemplate == "" {
		return DefaultNotificationTemplate
	}

	return r.NotificationTemplate
}
