package models

import "time"

// NotificationType classifies the event a notification reports.
type NotificationType string

const (
	NotificationApproved     NotificationType = "APPROVED"
	NotificationRejected     NotificationType = "REJECTED"
	NotificationAutoApproved NotificationType = "AUTO_APPROVED"
)

// Notification is delivered to the user who submitted a suggestion.
type Notification struct {
	ID           string           `db:"id" json:"id"`
	UserID       string           `db:"user_id" json:"user_id"`
	SuggestionID string           `db:"suggestion_id" json:"suggestion_id"`
	Type         NotificationType `db:"type" json:"type"`
	Title        string           `db:"title" json:"title"`
	Message      string           `db:"message" json:"message"`
	IsRead       bool             `db:"is_read" json:"is_read"`
	ReadAt       *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter paginates a recipient's notifications.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
