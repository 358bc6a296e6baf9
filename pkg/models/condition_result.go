package models

// ConditionResult is returned by the store-side condition check.
type ConditionResult struct {
	Met     bool           `json:"met"`
	Error   string         `json:"error,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
