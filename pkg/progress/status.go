package progress

import (
	"errors"
	"strings"
	"time"

	"car-service/pkg/model"
)

// DateLayout is the format of ServiceTask.CompletedDate.
const DateLayout = "2006-01-02"

var ErrInvalidStatus = errors.New("invalid task status")

// ParseStatus maps user input onto a TaskStatus.
func ParseStatus(s string) (model.TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return model.TaskPending, nil
	case "in-progress", "in_progress", "inprogress", "in progress":
		return model.TaskInProgress, nil
	case "completed", "complete", "done":
		return model.TaskCompleted, nil
	}
	return "", ErrInvalidStatus
}

// Transition describes a status change applied to a task.
type Transition struct {
	Status     model.TaskStatus
	Technician string
	Now        time.Time
	Settings   model.Settings
}

// SetTaskStatus applies a transition in place. Any status may follow any
// other; there is no validation and nothing to roll back.
//
// completed stamps CompletedDate and Technician. in-progress stamps
// Technician and, in legacy stamp mode only, CompletedDate as well; in the
// default mode a CompletedDate left by an earlier completion stays as is.
func SetTaskStatus(task *model.ServiceTask, tr Transition) {
	if task == nil {
		return
	}
	settings := tr.Settings.WithDefaults()
	tech := strings.TrimSpace(tr.Technician)
	if tech == "" {
		tech = settings.DefaultTechnician
	}
	task.Status = tr.Status
	switch tr.Status {
	case model.TaskCompleted:
		task.CompletedDate = tr.Now.Format(DateLayout)
		task.Technician = tech
	case model.TaskInProgress:
		task.Technician = tech
		if settings.StampMode == model.StampLegacy {
			task.CompletedDate = tr.Now.Format(DateLayout)
		}
	}
}
