package models

import "time"

// NotificationType tags the origin class of a notification
type NotificationType string

const (
	NotificationTypeEmail      NotificationType = "email"
	NotificationTypeSocial     NotificationType = "social"
	NotificationTypeSystem     NotificationType = "system"
	NotificationTypeAutomation NotificationType = "automation"
)

// Source and priority labels used for engine-produced notifications
const (
	NotificationSourceAutomation = "FlowPilot"
	NotificationPriorityNormal   = "normal"
	NotificationPriorityHigh     = "high"
)

// AppNotification is a transient notification shown to the user
type AppNotification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Source    string           `json:"source"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
	Priority  string           `json:"priority,omitempty"`
}

// NotificationEvent is the payload broadcast to live clients when the
// automation engine produces notifications
type NotificationEvent struct {
	Type          string            `json:"type"` // Always "notifications"
	Notifications []AppNotification `json:"notifications"`
	PlaySound     bool              `json:"playSound"`
	InstanceID    string            `json:"instanceId,omitempty"`
}
