package model

// TaskStatus is the lifecycle state of a single service task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// Image is a photo attached to a task, either owned by it or matched from the shared pool.
type Image struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ServiceTask is one step of the work done on a vehicle during an appointment.
// Title doubles as the display name and the key for image matching.
type ServiceTask struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        TaskStatus `json:"status"`
	Description   string     `json:"description,omitempty"`
	CompletedDate string     `json:"completedDate,omitempty"` // YYYY-MM-DD
	Technician    string     `json:"technician,omitempty"`
	Images        []Image    `json:"images,omitempty"` // authoritative when non-empty
}
