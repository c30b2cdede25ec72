package store

import "car-service/pkg/model"

// RecordStore is the persistence layer for service records. Every write is a
// full overwrite of the record; concurrent writers race and the last one wins.
type RecordStore interface {
	UpsertAppointment(model.Appointment) (model.Appointment, error)
	GetAppointment(id string) (model.Appointment, bool, error)
	ListAppointments(customerID string) ([]model.Appointment, error)
	GetProgress(appointmentID string) (model.ServiceProgress, bool, error)
	SaveProgress(model.ServiceProgress) error
	ListProgress() ([]model.ServiceProgress, error)
	SaveSharedImage(model.SharedImage) error
	ListSharedImages() ([]model.SharedImage, error)
	AppendNotification(customerID string, n model.Notification) error
	ListNotifications(customerID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(customerID, id string) (bool, error)
	AppendAudit(model.AuditEntry) error
	ListAudit(limit int) ([]model.AuditEntry, error)
	GetSettings() (model.Settings, error)
	UpdateSettings(model.Settings) error
}

// NewMemory is a helper to construct the in-memory implementation without importing it directly.
func NewMemory() RecordStore {
	return NewMemoryStore()
}

func lastN[T any](list []T, limit int) []T {
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return append([]T(nil), list[len(list)-limit:]...)
}

// newestFirst returns the last limit items, most recent first.
func newestFirst[T any](list []T, limit int) []T {
	tail := lastN(list, limit)
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}
	return tail
}

func upsertImage(list []model.SharedImage, img model.SharedImage) []model.SharedImage {
	for i := range list {
		if list[i].ID == img.ID {
			list[i] = img
			return list
		}
	}
	return append(list, img)
}
