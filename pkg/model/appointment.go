package model

import (
	"strings"
	"time"
)

// Appointment statuses as shown to customers and staff.
const (
	AppointmentScheduled  = "Scheduled"
	AppointmentInProgress = "In Progress"
	AppointmentCompleted  = "Completed"
	AppointmentCancelled  = "Cancelled"
)

// Appointment is a booked visit. Services is the comma-joined list picked at booking time.
type Appointment struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	VehicleID  string    `json:"vehicleId"`
	Services   string    `json:"services"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ServiceNames splits Services into trimmed, non-empty names.
func (a Appointment) ServiceNames() []string {
	return SplitServices(a.Services)
}

// SplitServices splits a comma-joined service string.
func SplitServices(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
