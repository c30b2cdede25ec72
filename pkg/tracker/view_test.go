package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-service/pkg/model"
	"car-service/pkg/progress"
	"car-service/pkg/store"
)

func TestViewMatchesImagesPerViewer(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	seedAppointment(t, st, "Oil Change, AC Service")
	ctx := context.Background()

	_, err := svc.UploadImage(ctx, model.SharedImage{URL: "/u/oil.jpg", Title: "Oil Change", Category: "Service", CustomerID: model.AllCustomers})
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, model.SharedImage{URL: "/u/ac.jpg", Title: "AC Compressor Repair", CustomerID: "cust_42"})
	require.NoError(t, err)
	_, err = svc.UploadImage(ctx, model.SharedImage{URL: "/u/other.jpg", Title: "AC Compressor Repair", CustomerID: "cust_43"})
	require.NoError(t, err)

	view, err := svc.View(ctx, "appt-1", "cust_42")
	require.NoError(t, err)
	require.Len(t, view.Tasks, 4)
	assert.Empty(t, view.Tasks[0].Matched)
	require.Len(t, view.Tasks[1].Matched, 1)
	assert.Equal(t, "/u/oil.jpg", view.Tasks[1].Matched[0].URL)
	assert.Equal(t, progress.ReasonExactTitle, view.Tasks[1].Matched[0].Reason)
	require.Len(t, view.Tasks[2].Matched, 1)
	assert.Equal(t, "/u/ac.jpg", view.Tasks[2].Matched[0].URL)
	assert.Equal(t, progress.ReasonAC, view.Tasks[2].Matched[0].Reason)

	other, err := svc.View(ctx, "appt-1", "cust_43")
	require.NoError(t, err)
	require.Len(t, other.Tasks[2].Matched, 1)
	assert.Equal(t, "/u/other.jpg", other.Tasks[2].Matched[0].URL)
}

func TestUploadImageDefaults(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	img, err := svc.UploadImage(ctx, model.SharedImage{URL: "/uploads/brake_pads.png", Category: "bogus"})
	require.NoError(t, err)
	assert.NotEmpty(t, img.ID)
	assert.Equal(t, model.CategoryGeneral, img.Category)
	assert.Equal(t, model.AllCustomers, img.CustomerID)
	assert.Equal(t, "brake_pads", img.Title)
	assert.Equal(t, fixedNow, img.UploadedAt)

	_, err = svc.UploadImage(ctx, model.SharedImage{Title: "no url"})
	assert.Error(t, err)

	_, err = svc.UploadImage(ctx, model.SharedImage{URL: "/x.jpg", Title: "Yours", CustomerID: "cust_7", Category: "parts"})
	require.NoError(t, err)
	notes, _ := svc.Notifications(ctx, "cust_7", 10)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyImageShared, notes[0].Details.Type)

	visible, err := svc.VisibleImages(ctx, "cust_8")
	require.NoError(t, err)
	assert.Len(t, visible, 1)
	all, err := svc.VisibleImages(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotificationsAndMarkRead(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	empty, err := svc.Notifications(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	seedAppointment(t, st, "Oil Change")
	_, err = svc.StartService(ctx, "appt-1")
	require.NoError(t, err)
	notes, err := svc.Notifications(ctx, "cust_42", 5)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	ok, err := svc.MarkRead(ctx, "cust_42", notes[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	notes, _ = svc.Notifications(ctx, "cust_42", 5)
	assert.True(t, notes[0].Read)
}

func TestListProgress(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()
	seedAppointment(t, st, "Oil Change")
	_, err := svc.EnsureProgress(ctx, "appt-1")
	require.NoError(t, err)
	// records written without a customer resolve through their appointment
	require.NoError(t, st.SaveProgress(model.ServiceProgress{AppointmentID: "appt-0"}))
	_, err = st.UpsertAppointment(model.Appointment{ID: "appt-0", CustomerID: "cust_9"})
	require.NoError(t, err)

	all, err := svc.ListProgress(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "appt-0", all[0].AppointmentID)

	mine, err := svc.ListProgress(ctx, "cust_9")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "appt-0", mine[0].AppointmentID)

	none, err := svc.ListProgress(ctx, "cust_1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBookAppointment(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)
	ctx := context.Background()

	appt, err := svc.BookAppointment(ctx, model.Appointment{CustomerID: "cust_1", VehicleID: "v1", Services: "Oil Change"})
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, model.AppointmentScheduled, appt.Status)

	_, err = svc.BookAppointment(ctx, model.Appointment{Services: "Oil Change"})
	assert.Error(t, err)
}
