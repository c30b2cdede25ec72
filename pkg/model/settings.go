package model

// StampMode selects how an in-progress transition treats CompletedDate.
type StampMode string

const (
	// StampCompletedOnly stamps CompletedDate only when a task completes.
	StampCompletedOnly StampMode = "completed-only"
	// StampLegacy also stamps CompletedDate when a task moves to in-progress.
	StampLegacy StampMode = "legacy"
)

// DefaultTechnician is recorded when a transition does not name one.
const DefaultTechnician = "Assigned Technician"

// Settings is a bag for global service settings.
type Settings struct {
	StampMode         StampMode `json:"stampMode"`
	DefaultTechnician string    `json:"defaultTechnician"`
}

// WithDefaults fills unset fields.
func (s Settings) WithDefaults() Settings {
	if s.StampMode == "" {
		s.StampMode = StampCompletedOnly
	}
	if s.DefaultTechnician == "" {
		s.DefaultTechnician = DefaultTechnician
	}
	return s
}
