package model

import "time"

// Notification detail types.
const (
	NotifyTaskUpdate       = "task_update"
	NotifyServiceStarted   = "service_started"
	NotifyServiceCompleted = "service_completed"
	NotifyImageShared      = "image_shared"
)

// NotificationDetails points back at the record that caused the notification.
type NotificationDetails struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointmentId,omitempty"`
	TaskID        string `json:"taskId,omitempty"`
}

// Notification is appended to a customer's list; Read flips when the customer opens it.
type Notification struct {
	ID      string              `json:"id"`
	Message string              `json:"message"`
	Date    time.Time           `json:"date"`
	Read    bool                `json:"read"`
	Details NotificationDetails `json:"details"`
}
