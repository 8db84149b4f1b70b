// Package viewer implements the Viewer Frame described in spec.md
// §4.9: a pluggable backend with a minimal interface so the core never
// depends on a specific GUI toolkit (spec.md §9 design note "Global
// matplotlib state / GUI toolkit selection").
//
// Grounded on internal/lidar/monitor/gridplotter.go (file-based
// rendering cadence) and internal/lidar/monitor/echarts_handlers.go
// (web-based rendering), generalized here from LIDAR-specific grid
// snapshots to the Measurement stream any Recording's plot queue
// produces.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/queue"
	"gonum.org/v1/gonum/stat"
)

// OverlayPlacement distinguishes whether a Window wants its fps/counter
// overlay burned into the image itself (relevant to direct framebuffer
// updates) or laid out alongside the image by the host UI (spec.md
// §4.9).
type OverlayPlacement int

const (
	// OverlayOnImage burns the overlay into the rendered image.
	OverlayOnImage OverlayPlacement = iota
	// OverlayAlongside renders the overlay as separate UI elements.
	OverlayAlongside
)

// Overlay carries the two info strings every Window displays: a
// live fps estimate and the latest image sequence counter.
type Overlay struct {
	FPS float64
	Num int
}

// Renderer is the pluggable backend capability: given the latest
// Measurement for a named series and its overlay, produce whatever
// artifact the backend emits (a PNG file, an HTML chart update, ...).
type Renderer interface {
	Render(name string, m measurement.Measurement, overlay Overlay, placement OverlayPlacement) error
}

// Logf is the package-level logger hook, overridable in tests.
var Logf = func(format string, v ...any) {}

// fpsTracker computes frames-per-second from a sliding sample of
// recent display timestamps.
type fpsTracker struct {
	mu      sync.Mutex
	samples []time.Time
	window  time.Duration
}

func newFPSTracker(window time.Duration) *fpsTracker {
	return &fpsTracker{window: window}
}

func (f *fpsTracker) record(now time.Time) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.samples = append(f.samples, now)
	cutoff := now.Add(-f.window)
	i := 0
	for i < len(f.samples) && f.samples[i].Before(cutoff) {
		i++
	}
	f.samples = f.samples[i:]

	if len(f.samples) < 2 {
		return 0
	}

	intervals := make([]float64, len(f.samples)-1)
	for i := 1; i < len(f.samples); i++ {
		intervals[i-1] = f.samples[i].Sub(f.samples[i-1]).Seconds()
	}

	meanInterval := stat.Mean(intervals, nil)
	if meanInterval <= 0 {
		return 0
	}
	if len(intervals) >= 2 {
		if variance := stat.Variance(intervals, nil); variance > meanInterval*meanInterval {
			Logf("viewer: fps sampler jitter high: variance=%.4f mean_interval=%.4f", variance, meanInterval)
		}
	}
	return 1 / meanInterval
}

// Window consumes one Recording's plot queue and drives a Renderer at
// a fixed frame cadence, overlaying fps and the latest image counter
// (spec.md §4.9).
type Window struct {
	name      string
	source    *queue.Queue[measurement.Measurement]
	renderer  Renderer
	dtGraph   time.Duration
	placement OverlayPlacement
	fps       *fpsTracker

	mu     sync.Mutex
	closed bool
}

// NewWindow creates a Window named name, draining source every
// dtGraph and rendering via renderer.
func NewWindow(name string, source *queue.Queue[measurement.Measurement], renderer Renderer, dtGraph time.Duration, placement OverlayPlacement) *Window {
	return &Window{
		name:      name,
		source:    source,
		renderer:  renderer,
		dtGraph:   dtGraph,
		placement: placement,
		fps:       newFPSTracker(5 * time.Second),
	}
}

// Run drives the Window until ctx is done or Close is called. Per
// frame it uses drain-last to skip backlog (spec.md §4.2, §4.9).
func (w *Window) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.dtGraph)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if w.Closed() {
				return nil
			}
			m, ok := w.source.DrainLast()
			if !ok {
				continue
			}
			overlay := Overlay{FPS: w.fps.record(time.Now()), Num: m.Num}
			if err := w.renderer.Render(w.name, m, overlay, w.placement); err != nil {
				Logf("viewer %s: render error: %v", w.name, err)
			}
		}
	}
}

// Close sets the Window's close signal. Per spec.md §4.9, closing a
// viewer window must not by itself stop the recording; the hub
// decides whether close implies stop.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Closed reports whether Close has been called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
