package models

import "time"

// NotificationType enumerates notification kinds.
type NotificationType string

const (
	NotificationResetPassword NotificationType = "reset_password"
	NotificationMessage       NotificationType = "message"
	NotificationAdmin         NotificationType = "admin"
	NotificationFollow        NotificationType = "follow"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationResetPassword, NotificationMessage, NotificationAdmin, NotificationFollow:
		return true
	}
	return false
}

// Notification is a record shown in a user's notification feed.
type Notification struct {
	ID               string           `db:"id" json:"_id"`
	UserID           string           `db:"user_id" json:"user"`
	Type             NotificationType `db:"type" json:"type"`
	Title            string           `db:"title" json:"title"`
	Body             string           `db:"body" json:"message"`
	IsRead           bool             `db:"is_read" json:"isRead"`
	RelatedUserID    *string          `db:"related_user_id" json:"relatedUser,omitempty"`
	RelatedMessageID *string          `db:"related_message_id" json:"relatedMessage,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}
