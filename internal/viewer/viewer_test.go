package viewer_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/queue"
	"github.com/prevo-go/recto/internal/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRenderer) Render(name string, m measurement.Measurement, overlay viewer.Overlay, placement viewer.OverlayPlacement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *recordingRenderer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestWindow_DrainsLastSkippingBacklog(t *testing.T) {
	q := queue.New[measurement.Measurement]()
	for i := 0; i < 5; i++ {
		q.Put(measurement.NewNumeric("s", time.Unix(int64(i), 0), 0, []float64{float64(i)}))
	}

	r := &recordingRenderer{}
	w := viewer.NewWindow("s", q, r, 5*time.Millisecond, viewer.OverlayOnImage)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return r.count() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 0, q.Size(), "drain-last must empty the queue even with backlog")
}

func TestWindow_CloseStopsRenderingWithoutCancelingContext(t *testing.T) {
	q := queue.New[measurement.Measurement]()
	r := &recordingRenderer{}
	w := viewer.NewWindow("s", q, r, 5*time.Millisecond, viewer.OverlayOnImage)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.True(t, w.Closed())
}

func TestPlotFileViewer_WritesPNGForNumericSeries(t *testing.T) {
	dir := t.TempDir()
	v := viewer.NewPlotFileViewer(dir, 50)

	m := measurement.NewNumeric("tempA", time.Unix(0, 0), 0, []float64{1})
	require.NoError(t, v.Render("tempA", m, viewer.Overlay{FPS: 10, Num: 0}, viewer.OverlayOnImage))

	_, err := os.Stat(filepath.Join(dir, "tempA-live.png"))
	require.NoError(t, err)
}

func TestPlotFileViewer_WritesRawBytesForImageSeries(t *testing.T) {
	dir := t.TempDir()
	v := viewer.NewPlotFileViewer(dir, 50)

	m := measurement.NewImage("cam0", time.Unix(0, 0), 0, []byte("bytes"), 3, "png")
	require.NoError(t, v.Render("cam0", m, viewer.Overlay{}, viewer.OverlayOnImage))

	data, err := os.ReadFile(filepath.Join(dir, "cam0-live.png"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

func TestWebChartViewer_ServesRenderedPageForSeries(t *testing.T) {
	v := viewer.NewWebChartViewer(50)
	m := measurement.NewNumeric("tempA", time.Unix(0, 0), 0, []float64{1})
	require.NoError(t, v.Render("tempA", m, viewer.Overlay{FPS: 5, Num: 0}, viewer.OverlayAlongside))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/?series=tempA", nil)
	v.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "tempA")
}
