package domain

import "time"

// NotificationType is the closed set of notification categories.
type NotificationType string

const (
	NotificationNewApplication    NotificationType = "new_application"
	NotificationApplicationStatus NotificationType = "application_status"
	NotificationMilestoneUpdate   NotificationType = "milestone_update"
	NotificationNewMessage        NotificationType = "new_message"
	NotificationGeneric           NotificationType = "generic"
)

// Notification is created server-side as a side effect of domain actions and
// mutated by clients only through mark-read.
type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	UserID         string           `json:"user_id" dynamodbav:"user_id"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	Message        string           `json:"message" dynamodbav:"message"`
	Link           *string          `json:"link,omitempty" dynamodbav:"link"`
	Read           bool             `json:"read" dynamodbav:"read"`
	ProjectID      *string          `json:"project_id,omitempty" dynamodbav:"project_id"`
	ApplicationID  *string          `json:"application_id,omitempty" dynamodbav:"application_id"`
	MilestoneID    *string          `json:"milestone_id,omitempty" dynamodbav:"milestone_id"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time        `json:"updated" dynamodbav:"updated_at"`
}
