package domain

import "time"

// NotificationType is the severity/category tag shown by the client.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a per-user message created in response to reservation
// events.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Message   string
	Type      NotificationType
	Read      bool
	CreatedAt time.Time
}

// NotificationRepository defines data access for notifications.
type NotificationRepository interface {
	Create(n *Notification) error
	GetByID(id int64) (*Notification, error)
	ListByUser(userID int64, unreadOnly bool) ([]*Notification, error)
	MarkRead(id int64) error
	Delete(id int64) error
}
