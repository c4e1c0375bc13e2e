package models

import "time"

// TriggerType is the event class an automation rule reacts to
type TriggerType string

const (
	TriggerOnCreate     TriggerType = "ON_CREATE"
	TriggerOnComplete   TriggerType = "ON_COMPLETE"
	TriggerOnOverdue    TriggerType = "ON_OVERDUE"
	TriggerKeywordMatch TriggerType = "KEYWORD_MATCH"
)

// IsValid reports whether the trigger type is one of the known values
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerOnCreate, TriggerOnComplete, TriggerOnOverdue, TriggerKeywordMatch:
		return true
	}
	return false
}

// ActionType is the side effect an automation rule produces when it fires
type ActionType string

const (
	ActionNotify      ActionType = "NOTIFY"
	ActionSetPriority ActionType = "SET_PRIORITY"
	ActionDelete      ActionType = "DELETE"

	// ActionAssignUser is declared in the rule vocabulary but has no engine
	// behavior. Existing rules that carry it evaluate to a no-op; the rule
	// builder rejects it for new rules until assignment ships.
	ActionAssignUser ActionType = "ASSIGN_USER"
)

// IsValid reports whether the action type is one of the known values
func (a ActionType) IsValid() bool {
	switch a {
	case ActionNotify, ActionSetPriority, ActionDelete, ActionAssignUser:
		return true
	}
	return false
}

// IsSupported reports whether the engine implements the action
func (a ActionType) IsSupported() bool {
	switch a {
	case ActionNotify, ActionSetPriority, ActionDelete:
		return true
	}
	return false
}

// AutomationRule is a user-authored "if trigger then action" policy
type AutomationRule struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	TriggerType      TriggerType `json:"triggerType"`
	TriggerCondition string      `json:"triggerCondition,omitempty"`
	ActionType       ActionType  `json:"actionType"`
	ActionTarget     string      `json:"actionTarget,omitempty"`
	Active           bool        `json:"active"`
	ExecutionCount   int64       `json:"executionCount"`
	LastRun          *time.Time  `json:"lastRun,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// CreateRuleRequest represents a request to create an automation rule
type CreateRuleRequest struct {
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	TriggerType      TriggerType `json:"triggerType"`
	TriggerCondition string      `json:"triggerCondition,omitempty"`
	ActionType       ActionType  `json:"actionType"`
	ActionTarget     string      `json:"actionTarget,omitempty"`
	Active           *bool       `json:"active,omitempty"` // Defaults to true
}

// UpdateRuleRequest represents a partial rule update
type UpdateRuleRequest struct {
	Name             *string      `json:"name,omitempty"`
	Description      *string      `json:"description,omitempty"`
	TriggerType      *TriggerType `json:"triggerType,omitempty"`
	TriggerCondition *string      `json:"triggerCondition,omitempty"`
	ActionType       *ActionType  `json:"actionType,omitempty"`
	ActionTarget     *string      `json:"actionTarget,omitempty"`
	Active           *bool        `json:"active,omitempty"`
}
