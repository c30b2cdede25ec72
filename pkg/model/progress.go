package model

import "time"

// ServiceProgress tracks the tasks of one appointment.
// Progress is derived from Tasks and is only written through progress.Recompute.
type ServiceProgress struct {
	AppointmentID string        `json:"appointmentId"`
	VehicleID     string        `json:"vehicleId"`
	CustomerID    string        `json:"customerId,omitempty"`
	Progress      int           `json:"progress"`
	Tasks         []ServiceTask `json:"tasks"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Task returns a pointer into Tasks for the given id, or nil.
func (p *ServiceProgress) Task(id string) *ServiceTask {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}
