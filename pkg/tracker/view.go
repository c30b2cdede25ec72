package tracker

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"car-service/pkg/events"
	"car-service/pkg/model"
	"car-service/pkg/progress"
)

// TaskView is a task together with the photos shown next to it.
type TaskView struct {
	model.ServiceTask
	Matched []progress.ImageMatch `json:"matched"`
}

// ProgressView is what the customer and staff progress pages render.
type ProgressView struct {
	AppointmentID string     `json:"appointmentId"`
	VehicleID     string     `json:"vehicleId"`
	CustomerID    string     `json:"customerId,omitempty"`
	Progress      int        `json:"progress"`
	Tasks         []TaskView `json:"tasks"`
}

// View loads (or provisions) the progress record and attaches matched images
// for the viewer. Every surface uses this one matching policy.
func (s *Service) View(ctx context.Context, appointmentID, viewerCustomerID string) (ProgressView, error) {
	p, err := s.EnsureProgress(ctx, appointmentID)
	if err != nil {
		return ProgressView{}, err
	}
	pool, err := s.st.ListSharedImages()
	if err != nil {
		return ProgressView{}, fmt.Errorf("list images: %w", err)
	}
	return ComposeView(p, pool, viewerCustomerID), nil
}

// ComposeView builds a view from an already loaded record and image pool.
func ComposeView(p model.ServiceProgress, pool []model.SharedImage, viewerCustomerID string) ProgressView {
	v := ProgressView{
		AppointmentID: p.AppointmentID,
		VehicleID:     p.VehicleID,
		CustomerID:    p.CustomerID,
		Progress:      p.Progress,
		Tasks:         make([]TaskView, 0, len(p.Tasks)),
	}
	for _, t := range p.Tasks {
		v.Tasks = append(v.Tasks, TaskView{ServiceTask: t, Matched: progress.MatchImages(t, pool, viewerCustomerID)})
	}
	return v
}

// ListProgress returns stored progress records ordered by appointment id,
// limited to one customer's appointments when customerID is set.
func (s *Service) ListProgress(ctx context.Context, customerID string) ([]model.ServiceProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := s.st.ListProgress()
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	if customerID == "" {
		return all, nil
	}
	out := make([]model.ServiceProgress, 0, len(all))
	for _, p := range all {
		if s.customerFor(p) == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// VisibleImages lists the shared pool entries the customer may see, in upload order.
func (s *Service) VisibleImages(ctx context.Context, customerID string) ([]model.SharedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pool, err := s.st.ListSharedImages()
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return pool, nil
	}
	out := make([]model.SharedImage, 0, len(pool))
	for _, img := range pool {
		if img.VisibleTo(customerID) {
			out = append(out, img)
		}
	}
	return out, nil
}

// UploadImage registers a shared image. Unknown categories become general and
// an empty scope becomes "all". A customer-scoped image notifies that customer.
func (s *Service) UploadImage(ctx context.Context, img model.SharedImage) (model.SharedImage, error) {
	if err := ctx.Err(); err != nil {
		return model.SharedImage{}, err
	}
	if strings.TrimSpace(img.URL) == "" {
		return model.SharedImage{}, fmt.Errorf("image url is required")
	}
	if img.ID == "" {
		img.ID = s.newID()
	}
	img.Category = strings.ToLower(strings.TrimSpace(img.Category))
	if !model.ValidCategory(img.Category) {
		img.Category = model.CategoryGeneral
	}
	if img.CustomerID == "" {
		img.CustomerID = model.AllCustomers
	}
	if strings.TrimSpace(img.Title) == "" {
		img.Title = strings.TrimSuffix(path.Base(img.URL), path.Ext(img.URL))
	}
	if img.UploadedAt.IsZero() {
		img.UploadedAt = s.now()
	}
	if err := s.st.SaveSharedImage(img); err != nil {
		return model.SharedImage{}, fmt.Errorf("save image: %w", err)
	}
	if img.CustomerID != model.AllCustomers {
		s.notify(img.CustomerID, model.Notification{
			Message: fmt.Sprintf("New photo shared with you: %s", img.Title),
			Details: model.NotificationDetails{Type: model.NotifyImageShared},
		})
	}
	s.audit(ctx, "upload_image", img.ID, img.Title)
	s.pub.Publish(events.Event{Kind: events.KindImage, CustomerID: img.CustomerID})
	log.Printf("image uploaded id=%s scope=%s category=%s", img.ID, img.CustomerID, img.Category)
	return img, nil
}

// Notifications lists a customer's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, customerID string, limit int) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, err := s.st.ListNotifications(customerID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Notification{}
	}
	return list, nil
}

// MarkRead flips a notification to read; unknown ids report false.
func (s *Service) MarkRead(ctx context.Context, customerID, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.st.MarkNotificationRead(customerID, id)
}

// BookAppointment stores a new or edited appointment. New bookings start Scheduled.
func (s *Service) BookAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, err
	}
	if a.CustomerID == "" {
		return model.Appointment{}, fmt.Errorf("customerId is required")
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.Status == "" {
		a.Status = model.AppointmentScheduled
	}
	saved, err := s.st.UpsertAppointment(a)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("save appointment: %w", err)
	}
	s.pub.Publish(events.Event{Kind: events.KindAppointment, AppointmentID: saved.ID, CustomerID: saved.CustomerID})
	return saved, nil
}
