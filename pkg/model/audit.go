package model

import "time"

// AuditEntry records a staff or system action against a service record.
type AuditEntry struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"` // task_status, provision, start_service, upload_image
	Target    string    `json:"target"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
