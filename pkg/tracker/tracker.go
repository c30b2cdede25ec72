// Package tracker applies the progress rules to stored records: it loads a
// record, mutates it, recomputes the derived percentage, writes it back and
// tells the customer what changed.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"car-service/pkg/events"
	"car-service/pkg/model"
	"car-service/pkg/progress"
	"car-service/pkg/store"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// Service is the single choke point for progress mutations.
type Service struct {
	st    store.RecordStore
	pub   events.Publisher
	now   func() time.Time
	newID func() string
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides the id generator used for tasks, images and notifications.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithPublisher sets where domain events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

func New(st store.RecordStore, opts ...Option) *Service {
	s := &Service{
		st:    st,
		pub:   events.Nop{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the underlying record store.
func (s *Service) Store() store.RecordStore {
	return s.st
}

type actorKey struct{}

// WithActor tags ctx with the name recorded in audit entries.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// TaskUpdate is the outcome of UpdateTaskStatus.
type TaskUpdate struct {
	Applied  bool                  `json:"applied"`
	Progress model.ServiceProgress `json:"progress"`
	Task     model.ServiceTask     `json:"task"`
}

// UpdateTaskStatus moves one task to a new status. A missing progress record
// or task id is logged and skipped: Applied is false and the error is nil.
// Only store failures are returned.
func (s *Service) UpdateTaskStatus(ctx context.Context, appointmentID, taskID string, status model.TaskStatus, technician string) (TaskUpdate, error) {
	if err := ctx.Err(); err != nil {
		return TaskUpdate{}, err
	}
	p, ok, err := s.st.GetProgress(appointmentID)
	if err != nil {
		return TaskUpdate{}, fmt.Errorf("load progress %s: %w", appointmentID, err)
	}
	if !ok {
		log.Printf("task update skipped; no progress record appointment=%s task=%s", appointmentID, taskID)
		return TaskUpdate{}, nil
	}
	task := p.Task(taskID)
	if task == nil {
		log.Printf("task update skipped; task not found appointment=%s task=%s", appointmentID, taskID)
		return TaskUpdate{Progress: p}, nil
	}
	settings, err := s.st.GetSettings()
	if err != nil {
		return TaskUpdate{}, fmt.Errorf("load settings: %w", err)
	}
	now := s.now()
	progress.SetTaskStatus(task, progress.Transition{Status: status, Technician: technician, Now: now, Settings: settings})
	updated := *task
	progress.Recompute(&p, now)
	if err := s.st.SaveProgress(p); err != nil {
		return TaskUpdate{}, fmt.Errorf("save progress %s: %w", appointmentID, err)
	}

	customerID := s.customerFor(p)
	s.notify(customerID, model.Notification{
		Message: taskMessage(updated),
		Details: model.NotificationDetails{Type: model.NotifyTaskUpdate, AppointmentID: appointmentID, TaskID: taskID},
	})
	s.audit(ctx, "task_status", appointmentID+"/"+taskID, fmt.Sprintf("%s -> %s (%d%%)", updated.Title, status, p.Progress))
	s.pub.Publish(events.Event{Kind: events.KindProgress, AppointmentID: appointmentID, CustomerID: customerID})
	log.Printf("task updated appointment=%s task=%s status=%s progress=%d", appointmentID, taskID, status, p.Progress)
	return TaskUpdate{Applied: true, Progress: p, Task: updated}, nil
}

func taskMessage(t model.ServiceTask) string {
	switch t.Status {
	case model.TaskCompleted:
		return fmt.Sprintf("Task %q is now completed by %s", t.Title, t.Technician)
	case model.TaskInProgress:
		return fmt.Sprintf("Task %q is now in progress with %s", t.Title, t.Technician)
	}
	return fmt.Sprintf("Task %q is now %s", t.Title, t.Status)
}

// EnsureProgress returns the appointment's progress record, generating and
// persisting the default task list when there is none yet.
func (s *Service) EnsureProgress(ctx context.Context, appointmentID string) (model.ServiceProgress, error) {
	if err := ctx.Err(); err != nil {
		return model.ServiceProgress{}, err
	}
	p, ok, err := s.st.GetProgress(appointmentID)
	if err != nil {
		return model.ServiceProgress{}, fmt.Errorf("load progress %s: %w", appointmentID, err)
	}
	if ok {
		return p, nil
	}
	appt, ok, err := s.st.GetAppointment(appointmentID)
	if err != nil {
		return model.ServiceProgress{}, fmt.Errorf("load appointment %s: %w", appointmentID, err)
	}
	if !ok {
		return model.ServiceProgress{}, ErrAppointmentNotFound
	}
	return s.provision(ctx, appt)
}

func (s *Service) provision(ctx context.Context, appt model.Appointment) (model.ServiceProgress, error) {
	p := progress.NewServiceProgress(appt, s.newID, s.now())
	if err := s.st.SaveProgress(p); err != nil {
		return model.ServiceProgress{}, fmt.Errorf("save progress %s: %w", appt.ID, err)
	}
	s.audit(ctx, "provision", appt.ID, fmt.Sprintf("%d tasks generated", len(p.Tasks)))
	s.pub.Publish(events.Event{Kind: events.KindProgress, AppointmentID: appt.ID, CustomerID: appt.CustomerID})
	log.Printf("progress provisioned appointment=%s tasks=%d", appt.ID, len(p.Tasks))
	return p, nil
}

// StartService moves an appointment to In Progress and makes sure it has a
// progress record. Calling it again is harmless.
func (s *Service) StartService(ctx context.Context, appointmentID string) (model.ServiceProgress, error) {
	appt, err := s.setAppointmentStatus(ctx, appointmentID, model.AppointmentInProgress)
	if err != nil {
		return model.ServiceProgress{}, err
	}
	p, err := s.EnsureProgress(ctx, appointmentID)
	if err != nil {
		return model.ServiceProgress{}, err
	}
	s.notify(appt.CustomerID, model.Notification{
		Message: fmt.Sprintf("Work on your %s has started", servicesLabel(appt)),
		Details: model.NotificationDetails{Type: model.NotifyServiceStarted, AppointmentID: appointmentID},
	})
	s.audit(ctx, "start_service", appointmentID, "")
	return p, nil
}

// CompleteService marks the appointment Completed. Task statuses are left as they are.
func (s *Service) CompleteService(ctx context.Context, appointmentID string) (model.Appointment, error) {
	appt, err := s.setAppointmentStatus(ctx, appointmentID, model.AppointmentCompleted)
	if err != nil {
		return model.Appointment{}, err
	}
	s.notify(appt.CustomerID, model.Notification{
		Message: fmt.Sprintf("Your %s is complete and ready for pickup", servicesLabel(appt)),
		Details: model.NotificationDetails{Type: model.NotifyServiceCompleted, AppointmentID: appointmentID},
	})
	s.audit(ctx, "complete_service", appointmentID, "")
	return appt, nil
}

func (s *Service) setAppointmentStatus(ctx context.Context, appointmentID, status string) (model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return model.Appointment{}, err
	}
	appt, ok, err := s.st.GetAppointment(appointmentID)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment %s: %w", appointmentID, err)
	}
	if !ok {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	if appt.Status == status {
		return appt, nil
	}
	appt.Status = status
	appt, err = s.st.UpsertAppointment(appt)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("save appointment %s: %w", appointmentID, err)
	}
	s.pub.Publish(events.Event{Kind: events.KindAppointment, AppointmentID: appointmentID, CustomerID: appt.CustomerID})
	return appt, nil
}

func servicesLabel(a model.Appointment) string {
	if a.Services == "" {
		return "service"
	}
	return a.Services
}

// customerFor resolves the customer of a progress record, falling back to the appointment.
func (s *Service) customerFor(p model.ServiceProgress) string {
	if p.CustomerID != "" {
		return p.CustomerID
	}
	appt, ok, err := s.st.GetAppointment(p.AppointmentID)
	if err != nil || !ok {
		return ""
	}
	return appt.CustomerID
}

// notify appends a notification for the customer. Failures are logged only.
func (s *Service) notify(customerID string, n model.Notification) {
	if customerID == "" {
		log.Printf("notification skipped; no customer type=%s appointment=%s", n.Details.Type, n.Details.AppointmentID)
		return
	}
	n.ID = s.newID()
	n.Date = s.now()
	if err := s.st.AppendNotification(customerID, n); err != nil {
		log.Printf("notification append failed customer=%s err=%v", customerID, err)
		return
	}
	s.pub.Publish(events.Event{Kind: events.KindNotification, AppointmentID: n.Details.AppointmentID, CustomerID: customerID})
}

func (s *Service) audit(ctx context.Context, action, target, detail string) {
	if err := s.st.AppendAudit(model.AuditEntry{
		Actor:     actorFrom(ctx),
		Action:    action,
		Target:    target,
		Detail:    detail,
		Timestamp: s.now(),
	}); err != nil {
		log.Printf("audit append failed action=%s target=%s err=%v", action, target, err)
	}
}
