// Package oscilloscope implements the wrapping-window live-plot buffer
// described in spec.md §4.8: a fixed-width window that appears to
// scroll smoothly while actually wrapping, keeping trailing data
// visible until the cursor passes back over it.
//
// Grounded on internal/lidar/monitor/gridplotter.go's time-keyed
// sample accumulation and rotation, and on prevo/plot/oscillo.py's
// reference_time/wrap bookkeeping.
package oscilloscope

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// Sample is one incoming measurement for a sensor: either a scalar
// point (len(Times)==1) or an array spanning [Times[0], Times[len-1]]
// (spec.md §4.8 step 1).
type Sample struct {
	Times  []time.Time
	Values [][]float64
}

func (s Sample) span() (tMin, tMax time.Time) {
	if len(s.Times) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Times[0], s.Times[len(s.Times)-1]
}

// buffer accumulates times/values for one side of the window.
type buffer struct {
	times  []time.Time
	values [][]float64
}

func (b *buffer) append(s Sample) {
	b.times = append(b.times, s.Times...)
	b.values = append(b.values, s.Values...)
}

func (b *buffer) reset() {
	b.times = nil
	b.values = nil
}

// Point is one (x, y) pair ready for rendering.
type Point struct {
	X float64
	Y []float64
}

// Window is the wrapping-window state for one sensor (spec.md §4.8).
type Window struct {
	windowWidth time.Duration

	referenceTime time.Time
	haveReference bool

	previous buffer
	current  buffer
}

// NewWindow creates a Window with the given width in real time.
func NewWindow(windowWidth time.Duration) *Window {
	return &Window{windowWidth: windowWidth}
}

// Ingest accepts one incoming measurement (spec.md §4.8 "Algorithm").
func (w *Window) Ingest(s Sample) {
	if len(s.Times) == 0 {
		return
	}
	tMin, _ := s.span()

	if !w.haveReference {
		w.referenceTime = tMin
		w.haveReference = true
	}

	w.current.append(s)

	if tMin.Before(w.referenceTime) {
		w.previous.append(s)
	}
}

// Frame computes the per-frame render state described in spec.md §4.8
// "Per-frame update", given the wall-clock time now. It returns the
// bar's x position and the ordered points to draw, and wraps the
// window's internal buffers once the cursor has reached the window
// width.
func (w *Window) Frame(now time.Time) (barX float64, points []Point) {
	if !w.haveReference {
		return 0, nil
	}

	nowRel := now.Sub(w.referenceTime).Seconds()
	width := w.windowWidth.Seconds()

	currentX := relativeSeconds(w.current.times, w.referenceTime)
	for i, x := range currentX {
		points = append(points, Point{X: x, Y: w.current.values[i]})
	}

	prevX := relativeSeconds(w.previous.times, w.referenceTime)
	floats.AddConst(width, prevX)

	var keptPrev buffer
	for i, t := range w.previous.times {
		if t.Add(w.windowWidth).After(now) {
			keptPrev.times = append(keptPrev.times, t)
			keptPrev.values = append(keptPrev.values, w.previous.values[i])
			points = append(points, Point{X: prevX[i], Y: w.previous.values[i]})
		}
	}
	w.previous = keptPrev

	if nowRel >= width {
		w.previous = w.current
		w.current.reset()
		w.referenceTime = w.referenceTime.Add(w.windowWidth)
		nowRel = now.Sub(w.referenceTime).Seconds()
	}

	return nowRel, points
}

// relativeSeconds maps each time in ts to its offset from ref in
// seconds.
func relativeSeconds(ts []time.Time, ref time.Time) []float64 {
	if len(ts) == 0 {
		return nil
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.Sub(ref).Seconds()
	}
	return out
}
