// Package progress holds the decision logic behind service tracking: the task
// status state machine, the completion percentage and the heuristic that
// attaches shared photos to tasks. Everything here is pure; persistence and
// notifications live in the tracker package.
package progress

import (
	"math"
	"time"

	"car-service/pkg/model"
)

// Weights applied per task when computing the completion percentage.
const (
	completedWeight  = 100
	inProgressWeight = 30
)

// Compute derives the 0-100 completion percentage of a task list.
// An empty list is 0. The weighted sum is not clamped.
func Compute(tasks []model.ServiceTask) int {
	if len(tasks) == 0 {
		return 0
	}
	var completed, inProgress int
	for _, t := range tasks {
		switch t.Status {
		case model.TaskCompleted:
			completed++
		case model.TaskInProgress:
			inProgress++
		}
	}
	total := float64(len(tasks))
	v := completedWeight*float64(completed)/total + inProgressWeight*float64(inProgress)/total
	return int(math.Round(v))
}

// Recompute refreshes the derived Progress field from Tasks. It is the only
// place that writes Progress.
func Recompute(p *model.ServiceProgress, now time.Time) {
	p.Progress = Compute(p.Tasks)
	p.UpdatedAt = now
}

// InSync reports whether the stored percentage matches the task list.
func InSync(p model.ServiceProgress) bool {
	return p.Progress == Compute(p.Tasks)
}
