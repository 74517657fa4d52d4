package models

// ConditionOperator defines how a rule condition compares a field to a value
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
)

// IsValid reports whether the operator is supported
func (op ConditionOperator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains:
		return true
	}
	return false
}

// RuleCondition compares one payload field against a value.
// Field is a dotted path; "metadata.severity" descends into payload metadata.
type RuleCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// EscalationConfig controls delayed re-dispatch of failed deliveries
type EscalationConfig struct {
	Enabled        bool     `json:"enabled"`
	DelayMinutes   int      `json:"delay_minutes"`
	MaxEscalations int      `json:"max_escalations"`
	Channels       []string `json:"channels"`
	Recipients     []string `json:"recipients"`
}

// RateLimitConfig overrides rate-limit behavior for one rule. Zero values
// leave the corresponding limit unenforced.
type RateLimitConfig struct {
	MaxPerHour      int `json:"max_per_hour"`
	MaxPerDay       int `json:"max_per_day"`
	CooldownMinutes int `json:"cooldown_minutes"` // minimum spacing between sends
}

// NotificationRule is a routing/escalation/rate-limit policy bound to one
// notification type. Conditions are evaluated as a conjunction; a rule with no
// conditions always matches its type.
type NotificationRule struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Enabled    bool              `json:"enabled"`
	Type       NotificationType  `json:"type"`
	Priority   Priority          `json:"priority"`
	Channels   []string          `json:"channels"`
	Conditions []RuleCondition   `json:"conditions,omitempty"`
	Escalation *EscalationConfig `json:"escalation,omitempty"`
	RateLimit  *RateLimitConfig  `json:"rate_limit,omitempty"`
}
