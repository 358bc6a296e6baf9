package models

import "fmt"

// TriggerType is the reason an evaluation ran.
type TriggerType string

const (
	TriggerTypeEvent     TriggerType = "event"
	TriggerTypeScheduled TriggerType = "scheduled"
	TriggerTypeManual    TriggerType = "manual"
)

// ParseTriggerType converts a raw value into a TriggerType.
func ParseTriggerType(s string) (TriggerType, error) {
	switch t := TriggerType(s); t {
	case TriggerTypeEvent, TriggerTypeScheduled, TriggerTypeManual:
		return t, nil
	}

	return "", fmt.Errorf("unknown trigger type %q", s)
}

// ExecutionType maps the trigger to the execution type recorded in the audit log.
func (t TriggerType) ExecutionType() ExecutionType {
	if t == TriggerTypeManual {
		return ExecutionTypeManual
	}

	return ExecutionTypeAutomatic
}

// TriggeredBy maps the trigger to the actor class recorded in the audit log.
func (t TriggerType) TriggeredBy() TriggeredBy {
	if t == TriggerTypeManual {
		return TriggeredByUser
	}

	return TriggeredBySystem
}
