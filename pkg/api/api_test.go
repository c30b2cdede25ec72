package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-service/pkg/auth"
	"car-service/pkg/events"
	"car-service/pkg/model"
	"car-service/pkg/store"
	"car-service/pkg/tracker"
)

const bootstrap = "s3cret"

type harness struct {
	mux    *http.ServeMux
	st     store.RecordStore
	bus    *events.Bus
	images *ImageCache
	hub    *WSHub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("JWT_SECRET", "api-test")
	bus := events.NewBus()
	st := store.WithEvents(store.NewMemoryStore(), bus)
	svc := tracker.New(st, tracker.WithPublisher(bus))
	authz := Authorizer{Token: bootstrap, JWT: true}
	images := NewImageCache(svc, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	images.Invalidate(ctx, bus)

	mux := http.NewServeMux()
	RegisterRoutes(mux, svc, authz, images)
	hub := NewWSHub(bus, authz)
	hub.RegisterRoutes(mux)

	_, err := st.UpsertAppointment(model.Appointment{ID: "appt-1", CustomerID: "cust_42", VehicleID: "veh-1", Services: "Oil Change, AC Service", Status: model.AppointmentScheduled})
	require.NoError(t, err)
	return &harness{mux: mux, st: st, bus: bus, images: images, hub: hub}
}

func customerToken(t *testing.T, customerID string) string {
	t.Helper()
	tok, err := auth.Generate(model.User{ID: 2, Username: "c-" + customerID, CustomerID: customerID, Role: model.RoleCustomer}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "dev", rec.Header().Get("X-Build"))
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1", "bogus", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/api/v1/progress/task", customerToken(t, "cust_42"), TaskStatusRequest{}).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/v1/audit", customerToken(t, "cust_42"), nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/v1/appointments", customerToken(t, ""), nil).Code)
}

func TestProgressViewProvisions(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1", customerToken(t, "cust_42"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[tracker.ProgressView](t, rec)
	require.Len(t, view.Tasks, 4)
	assert.Equal(t, "Vehicle Inspection", view.Tasks[0].Title)
	assert.Equal(t, 0, view.Progress)

	_, ok, err := h.st.GetProgress("appt-1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1", customerToken(t, "cust_43"), nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=nope", bootstrap, nil).Code)
}

func TestProgressList(t *testing.T) {
	h := newHarness(t)
	_, err := h.st.UpsertAppointment(model.Appointment{ID: "appt-2", CustomerID: "cust_43", Services: "Brake Service"})
	require.NoError(t, err)
	for _, id := range []string{"appt-1", "appt-2"} {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/v1/appointments/start", bootstrap, AppointmentActionRequest{AppointmentID: id}).Code)
	}

	rec := h.do(t, http.MethodGet, "/api/v1/progress", bootstrap, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decode[struct{ Items []model.ServiceProgress }](t, rec)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "appt-1", all.Items[0].AppointmentID)
	assert.Equal(t, "appt-2", all.Items[1].AppointmentID)

	rec = h.do(t, http.MethodGet, "/api/v1/progress?customerId=cust_43", bootstrap, nil)
	assert.Len(t, decode[struct{ Items []model.ServiceProgress }](t, rec).Items, 1)

	// customers only ever see their own records
	rec = h.do(t, http.MethodGet, "/api/v1/progress?customerId=cust_43", customerToken(t, "cust_42"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[struct{ Items []model.ServiceProgress }](t, rec)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "appt-1", mine.Items[0].AppointmentID)
}

func TestTaskStatusUpdate(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/api/v1/appointments/start", bootstrap, AppointmentActionRequest{AppointmentID: "appt-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decode[model.ServiceProgress](t, rec)
	require.Len(t, p.Tasks, 4)

	rec = h.do(t, http.MethodPost, "/api/v1/progress/task", bootstrap, TaskStatusRequest{AppointmentID: "appt-1", TaskID: p.Tasks[1].ID, Status: "completed", Technician: "Sam"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[tracker.TaskUpdate](t, rec)
	assert.True(t, res.Applied)
	assert.Equal(t, 25, res.Progress.Progress)
	assert.Equal(t, "Sam", res.Task.Technician)
	assert.NotEmpty(t, res.Task.CompletedDate)

	rec = h.do(t, http.MethodPost, "/api/v1/progress/task", bootstrap, TaskStatusRequest{AppointmentID: "appt-1", TaskID: p.Tasks[1].ID, Status: "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown records are skipped, not errors
	rec = h.do(t, http.MethodPost, "/api/v1/progress/task", bootstrap, TaskStatusRequest{AppointmentID: "ghost", TaskID: "t1", Status: "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[tracker.TaskUpdate](t, rec).Applied)

	rec = h.do(t, http.MethodGet, "/api/v1/notifications", customerToken(t, "cust_42"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[struct{ Items []model.Notification }](t, rec)
	require.Len(t, notes.Items, 2)
	assert.Equal(t, model.NotifyTaskUpdate, notes.Items[0].Details.Type)
	assert.Equal(t, model.NotifyServiceStarted, notes.Items[1].Details.Type)

	rec = h.do(t, http.MethodPost, "/api/v1/notifications/read", customerToken(t, "cust_42"), MarkReadRequest{NotificationID: notes.Items[0].ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["updated"])

	rec = h.do(t, http.MethodGet, "/api/v1/audit", bootstrap, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]model.AuditEntry](t, rec)
	require.NotEmpty(t, entries)
	assert.Equal(t, "bootstrap", entries[len(entries)-1].Actor)
}

func TestAppointmentsScopedToCustomer(t *testing.T) {
	h := newHarness(t)
	tok := customerToken(t, "cust_7")
	rec := h.do(t, http.MethodPost, "/api/v1/appointments", tok, model.Appointment{CustomerID: "cust_42", VehicleID: "v9", Services: "Brake Service"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	booked := decode[model.Appointment](t, rec)
	assert.Equal(t, "cust_7", booked.CustomerID)
	assert.Equal(t, model.AppointmentScheduled, booked.Status)

	rec = h.do(t, http.MethodGet, "/api/v1/appointments?customerId=cust_42", tok, nil)
	list := decode[struct{ Items []model.Appointment }](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, booked.ID, list.Items[0].ID)

	rec = h.do(t, http.MethodPost, "/api/v1/appointments", tok, model.Appointment{ID: "appt-1", Services: "Hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/appointments", bootstrap, nil)
	assert.Len(t, decode[struct{ Items []model.Appointment }](t, rec).Items, 2)
}

func TestImagesUploadAndCache(t *testing.T) {
	h := newHarness(t)
	tok := customerToken(t, "cust_42")

	rec := h.do(t, http.MethodGet, "/api/v1/images", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[struct{ Items []model.SharedImage }](t, rec).Items)

	assert.Equal(t, http.StatusForbidden, h.do(t, http.MethodPost, "/api/v1/images", tok, ImageUploadRequest{URL: "/x.jpg"}).Code)
	rec = h.do(t, http.MethodPost, "/api/v1/images", bootstrap, ImageUploadRequest{URL: "/u/oil.jpg", Title: "Oil Change", Category: "service"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = h.do(t, http.MethodPost, "/api/v1/images", bootstrap, ImageUploadRequest{URL: "/u/private.jpg", Title: "AC Compressor Repair", CustomerID: "cust_43"})
	require.Equal(t, http.StatusOK, rec.Code)

	// the upload flushed the cached empty list
	assert.Eventually(t, func() bool {
		rec := h.do(t, http.MethodGet, "/api/v1/images", tok, nil)
		return len(decode[struct{ Items []model.SharedImage }](t, rec).Items) == 1
	}, time.Second, 10*time.Millisecond)

	rec = h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1", bootstrap, nil)
	view := decode[tracker.ProgressView](t, rec)
	require.Len(t, view.Tasks[1].Matched, 1)
	assert.Equal(t, "/u/oil.jpg", view.Tasks[1].Matched[0].URL)
	assert.Empty(t, view.Tasks[2].Matched)

	rec = h.do(t, http.MethodGet, "/api/v1/progress?appointmentId=appt-1&viewer=cust_43", bootstrap, nil)
	view = decode[tracker.ProgressView](t, rec)
	require.Len(t, view.Tasks[2].Matched, 1)
	assert.Equal(t, "/u/private.jpg", view.Tasks[2].Matched[0].URL)
}

func TestEventStream(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/events?token=" + customerToken(t, "cust_42")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.bus.Subscribers() >= 2 }, time.Second, 10*time.Millisecond)
	h.bus.Publish(events.Event{Kind: events.KindProgress, AppointmentID: "other", CustomerID: "cust_43"})
	h.bus.Publish(events.Event{Kind: events.KindProgress, AppointmentID: "appt-1", CustomerID: "cust_42"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "appt-1", ev.AppointmentID)
	assert.Equal(t, events.KindProgress, ev.Kind)
}

func TestOpenAuthorizer(t *testing.T) {
	id, ok := Authorizer{}.identify(httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	assert.True(t, id.Admin)

	_, ok = Authorizer{Token: "x"}.identify(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-Token", "x")
	id, ok = Authorizer{Token: "x"}.identify(req)
	require.True(t, ok)
	assert.Equal(t, "bootstrap", id.Name)
}

func (h *harness) connected() int {
	h.hub.mu.RLock()
	defer h.hub.mu.RUnlock()
	return len(h.hub.subs)
}

func TestEventStreamClosedOnShutdown(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/events?token=" + bootstrap
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.connected() == 1 }, time.Second, 10*time.Millisecond)

	h.hub.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Eventually(t, func() bool { return h.connected() == 0 }, time.Second, 10*time.Millisecond)
}
