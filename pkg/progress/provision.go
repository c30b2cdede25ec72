package progress

import (
	"time"

	"car-service/pkg/model"
)

// Bracketing tasks added around the booked services.
const (
	FirstTaskTitle = "Vehicle Inspection"
	LastTaskTitle  = "Final Inspection"
)

// GenerateTasksForService builds the default task list for a comma-joined
// service string: Vehicle Inspection, each service in order, Final Inspection.
func GenerateTasksForService(services string, newID func() string) []model.ServiceTask {
	names := model.SplitServices(services)
	tasks := make([]model.ServiceTask, 0, len(names)+2)
	add := func(title, desc string) {
		tasks = append(tasks, model.ServiceTask{
			ID:          newID(),
			Title:       title,
			Status:      model.TaskPending,
			Description: desc,
		})
	}
	add(FirstTaskTitle, "Initial check of the vehicle condition")
	for _, n := range names {
		add(n, "")
	}
	add(LastTaskTitle, "Quality check before handover")
	return tasks
}

// NewServiceProgress creates the progress record for an appointment with generated tasks.
func NewServiceProgress(appt model.Appointment, newID func() string, now time.Time) model.ServiceProgress {
	p := model.ServiceProgress{
		AppointmentID: appt.ID,
		VehicleID:     appt.VehicleID,
		CustomerID:    appt.CustomerID,
		Tasks:         GenerateTasksForService(appt.Services, newID),
	}
	Recompute(&p, now)
	return p
}
