package api

// TaskStatusRequest moves one task of an appointment to a new status.
type TaskStatusRequest struct {
	AppointmentID string `json:"appointmentId"`
	TaskID        string `json:"taskId"`
	Status        string `json:"status"`               // pending | in-progress | completed
	Technician    string `json:"technician,omitempty"` // defaults to the configured placeholder
}

// AppointmentActionRequest targets a single appointment.
type AppointmentActionRequest struct {
	AppointmentID string `json:"appointmentId"`
}

// MarkReadRequest flips one notification to read.
type MarkReadRequest struct {
	CustomerID     string `json:"customerId"`
	NotificationID string `json:"notificationId"`
}

// ImageUploadRequest registers a photo that is already reachable at URL.
type ImageUploadRequest struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Category   string `json:"category,omitempty"`
	CustomerID string `json:"customerId,omitempty"` // "all" or a customer id; empty means "all"
}
