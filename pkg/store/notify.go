package store

import (
	"car-service/pkg/events"
	"car-service/pkg/model"
)

// Notifying wraps a RecordStore and announces every successful write on the
// event bus, the way a browser announces storage changes to other tabs.
type Notifying struct {
	RecordStore
	pub events.Publisher
}

// WithEvents decorates st so writes publish storage events on pub.
func WithEvents(st RecordStore, pub events.Publisher) *Notifying {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Notifying{RecordStore: st, pub: pub}
}

// Unwrap returns the decorated store.
func (n *Notifying) Unwrap() RecordStore {
	return n.RecordStore
}

// Ping checks the decorated store when it supports it.
func (n *Notifying) Ping() error {
	if p, ok := n.RecordStore.(interface{ Ping() error }); ok {
		return p.Ping()
	}
	return nil
}

func (n *Notifying) publish(key, appointmentID, customerID string) {
	n.pub.Publish(events.Event{Kind: events.KindStorage, Key: key, AppointmentID: appointmentID, CustomerID: customerID})
}

func (n *Notifying) UpsertAppointment(a model.Appointment) (model.Appointment, error) {
	saved, err := n.RecordStore.UpsertAppointment(a)
	if err == nil {
		n.publish(appointmentPrefix+saved.ID, saved.ID, saved.CustomerID)
	}
	return saved, err
}

func (n *Notifying) SaveProgress(p model.ServiceProgress) error {
	err := n.RecordStore.SaveProgress(p)
	if err == nil {
		n.publish(progressPrefix+p.AppointmentID, p.AppointmentID, p.CustomerID)
	}
	return err
}

func (n *Notifying) SaveSharedImage(img model.SharedImage) error {
	err := n.RecordStore.SaveSharedImage(img)
	if err == nil {
		n.publish(ImagesKey, "", img.CustomerID)
	}
	return err
}

func (n *Notifying) AppendNotification(customerID string, note model.Notification) error {
	err := n.RecordStore.AppendNotification(customerID, note)
	if err == nil {
		n.publish(notifyPrefix+customerID, note.Details.AppointmentID, customerID)
	}
	return err
}

func (n *Notifying) MarkNotificationRead(customerID, id string) (bool, error) {
	ok, err := n.RecordStore.MarkNotificationRead(customerID, id)
	if err == nil && ok {
		n.publish(notifyPrefix+customerID, "", customerID)
	}
	return ok, err
}

func (n *Notifying) UpdateSettings(s model.Settings) error {
	err := n.RecordStore.UpdateSettings(s)
	if err == nil {
		n.publish(settingsKey, "", "")
	}
	return err
}
