package models

import (
	"time"
)

// NotificationType defines the type of notification
type NotificationType string

const (
	NotificationTypeSecurityAlert       NotificationType = "security_alert"
	NotificationTypeComplianceViolation NotificationType = "compliance_violation"
	NotificationTypeWorkflowFailure     NotificationType = "workflow_failure"
	NotificationTypeScanCompleted       NotificationType = "scan_completed"
	NotificationTypeRateLimitWarning    NotificationType = "rate_limit_warning"
	NotificationTypeSystemMaintenance   NotificationType = "system_maintenance"
)

// NotificationTypes lists all known notification types
var NotificationTypes = []NotificationType{
	NotificationTypeSecurityAlert,
	NotificationTypeComplianceViolation,
	NotificationTypeWorkflowFailure,
	NotificationTypeScanCompleted,
	NotificationTypeRateLimitWarning,
	NotificationTypeSystemMaintenance,
}

// IsValid reports whether the notification type is a known type
func (t NotificationType) IsValid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Priority defines the urgency of a notification
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var priorityWeights = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Weight returns the ordinal weight of the priority (low < medium < high < critical)
func (p Priority) Weight() int {
	return priorityWeights[p]
}

// IsValid reports whether the priority is a known level
func (p Priority) IsValid() bool {
	_, ok := priorityWeights[p]
	return ok
}

// AtLeast reports whether p is at or above the given threshold
func (p Priority) AtLeast(threshold Priority) bool {
	return p.Weight() >= threshold.Weight()
}

// NotificationPayload is an immutable description of an event to notify about
type NotificationPayload struct {
	ID           string                 `json:"id" db:"id"`
	Type         NotificationType       `json:"type" db:"type"`
	Priority     Priority               `json:"priority" db:"priority"`
	Title        string                 `json:"title" db:"title"`
	Message      string                 `json:"message" db:"message"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	Organization string                 `json:"organization" db:"organization"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	Dismissible  bool                   `json:"dismissible" db:"dismissible"`
}

// DeliveryStatus tracks the state of a single delivery attempt
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSending   DeliveryStatus = "sending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusDismissed DeliveryStatus = "dismissed"
)

// NotificationDelivery is the outcome of delivering one payload to one
// (recipient, channel) pair
type NotificationDelivery struct {
	ID              string         `json:"id" db:"id"`
	NotificationID  string         `json:"notification_id" db:"notification_id"`
	Recipient       string         `json:"recipient" db:"recipient"`
	ChannelID       string         `json:"channel_id" db:"channel_id"`
	Status          DeliveryStatus `json:"status" db:"status"`
	Attempts        int            `json:"attempts" db:"attempts"`
	Error           *string        `json:"error,omitempty" db:"error"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty" db:"delivered_at"`
	EscalationLevel int            `json:"escalation_level" db:"escalation_level"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// DigestFrequency defines how often a digest is generated
type DigestFrequency string

const (
	DigestFrequencyHourly DigestFrequency = "hourly"
	DigestFrequencyDaily  DigestFrequency = "daily"
	DigestFrequencyWeekly DigestFrequency = "weekly"
)

// IsValid reports whether the frequency is a known value
func (f DigestFrequency) IsValid() bool {
	switch f {
	case DigestFrequencyHourly, DigestFrequencyDaily, DigestFrequencyWeekly:
		return true
	}
	return false
}

// DigestStatus tracks the lifecycle of a generated digest
type DigestStatus string

const (
	DigestStatusPending DigestStatus = "pending"
	DigestStatusSent    DigestStatus = "sent"
)

// NotificationDigest aggregates pending notifications for one (user, frequency) key
type NotificationDigest struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Frequency     DigestFrequency        `json:"frequency"`
	GeneratedAt   time.Time              `json:"generated_at"`
	Status        DigestStatus           `json:"status"`
	Notifications []*NotificationPayload `json:"notifications"`
}
