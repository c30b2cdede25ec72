package store

import (
	"sort"
	"sync"
	"time"

	"car-service/pkg/model"
)

// MemoryStore is a simple in-memory implementation, intended for dev/tests.
type MemoryStore struct {
	mu            sync.RWMutex
	appointments  map[string]model.Appointment
	progress      map[string]model.ServiceProgress
	images        []model.SharedImage
	notifications map[string][]model.Notification
	audit         []model.AuditEntry
	settings      model.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments:  make(map[string]model.Appointment),
		progress:      make(map[string]model.ServiceProgress),
		notifications: make(map[string][]model.Notification),
		settings:      model.Settings{}.WithDefaults(),
	}
}

// Ping reports readiness for health endpoints.
func (m *MemoryStore) Ping() error { return nil }

func (m *MemoryStore) UpsertAppointment(a model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		if prev, ok := m.appointments[a.ID]; ok {
			a.CreatedAt = prev.CreatedAt
		} else {
			a.CreatedAt = time.Now()
		}
	}
	m.appointments[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAppointment(id string) (model.Appointment, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appointments[id]
	return a, ok, nil
}

func (m *MemoryStore) ListAppointments(customerID string) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range m.appointments {
		if customerID == "" || a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (m *MemoryStore) GetProgress(appointmentID string) (model.ServiceProgress, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[appointmentID]
	if !ok {
		return model.ServiceProgress{}, false, nil
	}
	p.Tasks = cloneTasks(p.Tasks)
	return p, true, nil
}

func (m *MemoryStore) SaveProgress(p model.ServiceProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Tasks = cloneTasks(p.Tasks)
	m.progress[p.AppointmentID] = p
	return nil
}

func (m *MemoryStore) ListProgress() ([]model.ServiceProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ServiceProgress, 0, len(m.progress))
	for _, p := range m.progress {
		p.Tasks = cloneTasks(p.Tasks)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentID < out[j].AppointmentID })
	return out, nil
}

func (m *MemoryStore) SaveSharedImage(img model.SharedImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = upsertImage(m.images, img)
	return nil
}

func (m *MemoryStore) ListSharedImages() ([]model.SharedImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.SharedImage{}, m.images...), nil
}

func (m *MemoryStore) AppendNotification(customerID string, n model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[customerID] = append(m.notifications[customerID], n)
	return nil
}

func (m *MemoryStore) ListNotifications(customerID string, limit int) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.notifications[customerID], limit), nil
}

func (m *MemoryStore) MarkNotificationRead(customerID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.notifications[customerID]
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AppendAudit(entry model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	m.audit = append(m.audit, entry)
	return nil
}

func (m *MemoryStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.audit, limit), nil
}

func (m *MemoryStore) GetSettings() (model.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) UpdateSettings(s model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s.WithDefaults()
	return nil
}

func cloneTasks(tasks []model.ServiceTask) []model.ServiceTask {
	if tasks == nil {
		return nil
	}
	out := make([]model.ServiceTask, len(tasks))
	for i, t := range tasks {
		t.Images = append([]model.Image(nil), t.Images...)
		out[i] = t
	}
	return out
}

func sortAppointments(list []model.Appointment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
