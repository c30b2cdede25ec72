package model

import "time"

// Image categories accepted for shared uploads.
const (
	CategoryGeneral     = "general"
	CategoryService     = "service"
	CategoryParts       = "parts"
	CategoryInspection  = "inspection"
	CategoryDiagnostics = "diagnostics"
)

// AllCustomers scopes a shared image to every customer.
const AllCustomers = "all"

// SharedImage is a photo uploaded by staff. CustomerID is a visibility scope, not ownership.
type SharedImage struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Category   string    `json:"category,omitempty"`
	CustomerID string    `json:"customerId"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// VisibleTo reports whether the image is in scope for the viewer.
func (s SharedImage) VisibleTo(customerID string) bool {
	return s.CustomerID == AllCustomers || s.CustomerID == customerID
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryGeneral, CategoryService, CategoryParts, CategoryInspection, CategoryDiagnostics:
		return true
	}
	return false
}
