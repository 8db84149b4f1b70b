package viewer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prevo-go/recto/internal/measurement"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotFileViewer is a file-based Renderer: numeric series are rendered
// as a rolling line chart PNG via gonum/plot; image measurements are
// written out as their raw bytes. Grounded on
// internal/lidar/monitor/gridplotter.go's per-ring PNG generation.
type PlotFileViewer struct {
	dir        string
	historyLen int

	mu      sync.Mutex
	history map[string][]plotter.XY
}

// NewPlotFileViewer creates a PlotFileViewer writing files under dir,
// keeping at most historyLen points per series for the rolling chart.
func NewPlotFileViewer(dir string, historyLen int) *PlotFileViewer {
	if historyLen <= 0 {
		historyLen = 200
	}
	return &PlotFileViewer{dir: dir, historyLen: historyLen, history: make(map[string][]plotter.XY)}
}

// Render implements Renderer.
func (v *PlotFileViewer) Render(name string, m measurement.Measurement, overlay Overlay, placement OverlayPlacement) error {
	if err := os.MkdirAll(v.dir, 0755); err != nil {
		return fmt.Errorf("plotfile viewer: create dir: %w", err)
	}

	switch m.Kind {
	case measurement.KindImage:
		return v.renderImage(name, m, overlay, placement)
	default:
		return v.renderNumeric(name, m, overlay)
	}
}

func (v *PlotFileViewer) renderImage(name string, m measurement.Measurement, overlay Overlay, placement OverlayPlacement) error {
	path := filepath.Join(v.dir, fmt.Sprintf("%s-live.%s", name, nonEmpty(m.Ext, "png")))
	if err := os.WriteFile(path, m.Image, 0644); err != nil {
		return fmt.Errorf("plotfile viewer: write image: %w", err)
	}
	if placement == OverlayAlongside {
		return v.writeOverlaySidecar(name, overlay)
	}
	return nil
}

func (v *PlotFileViewer) renderNumeric(name string, m measurement.Measurement, overlay Overlay) error {
	if len(m.Values) == 0 {
		return nil
	}

	v.mu.Lock()
	series := append(v.history[name], plotter.XY{X: float64(m.Time.Unix()), Y: m.Values[0]})
	if len(series) > v.historyLen {
		series = series[len(series)-v.historyLen:]
	}
	v.history[name] = series
	points := append([]plotter.XY(nil), series...)
	v.mu.Unlock()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (fps %.1f, #%d)", name, overlay.FPS, overlay.Num)
	p.X.Label.Text = "time (unix)"
	p.Y.Label.Text = "value"

	line, err := plotter.NewLine(plotter.XYs(points))
	if err != nil {
		return fmt.Errorf("plotfile viewer: build line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line)

	path := filepath.Join(v.dir, fmt.Sprintf("%s-live.png", name))
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("plotfile viewer: save: %w", err)
	}
	return nil
}

func (v *PlotFileViewer) writeOverlaySidecar(name string, overlay Overlay) error {
	path := filepath.Join(v.dir, fmt.Sprintf("%s-live.info.txt", name))
	content := fmt.Sprintf("fps %.1f\n#%d\n", overlay.FPS, overlay.Num)
	return os.WriteFile(path, []byte(content), 0644)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
