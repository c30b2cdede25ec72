package uploads

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-service/pkg/model"
)

type recorder struct {
	mu   sync.Mutex
	imgs []model.SharedImage
}

func (r *recorder) UploadImage(_ context.Context, img model.SharedImage) (model.SharedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imgs = append(r.imgs, img)
	return img, nil
}

func (r *recorder) list() []model.SharedImage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.SharedImage(nil), r.imgs...)
}

func TestTitleFromFile(t *testing.T) {
	cases := map[string]string{
		"oil_change-front.jpg":  "Oil Change Front",
		"ac_service.png":        "AC Service",
		"Brake Pads.JPEG":       "Brake Pads",
		"transmission--fluid.x": "Transmission Fluid",
	}
	for in, want := range cases {
		assert.Equal(t, want, TitleFromFile(in), in)
	}
}

func TestDescribe(t *testing.T) {
	w := NewWatcher("/data/uploads", "/files", nil)

	img, ok := w.Describe("/data/uploads/cust_42/service/oil_change.jpg")
	require.True(t, ok)
	assert.Equal(t, "cust_42", img.CustomerID)
	assert.Equal(t, "service", img.Category)
	assert.Equal(t, "Oil Change", img.Title)
	assert.Equal(t, "/files/cust_42/service/oil_change.jpg", img.URL)
	assert.Equal(t, "cust_42/service/oil_change.jpg", img.ID)

	for _, p := range []string{
		"/data/uploads/all/service/notes.txt",
		"/data/uploads/all/.hidden.jpg",
		"/data/uploads/stray.jpg",
		"/data/uploads/all/service/deep/x.jpg",
		"/elsewhere/all/service/x.jpg",
	} {
		_, ok := w.Describe(p)
		assert.False(t, ok, p)
	}
}

func TestRunRegistersExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "all", "inspection"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all", "inspection", "brake_check.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all", "inspection", "readme.md"), []byte("x"), 0o644))

	rec := &recorder{}
	w := NewWatcher(dir, "", rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/uploads/all/inspection/brake_check.jpg", rec.list()[0].URL)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "all", "inspection", "tyre_wear.png"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return len(rec.list()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Tyre Wear", rec.list()[1].Title)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
