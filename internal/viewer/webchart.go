package viewer

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/prevo-go/recto/internal/measurement"
)

// WebChartViewer is an HTTP-servable Renderer: each series keeps a
// rolling line chart rendered to HTML on every frame, cached in
// memory and served on demand. Image measurements are served as raw
// bytes. Grounded on internal/lidar/monitor/echarts_handlers.go's
// chart-to-buffer-then-serve pattern.
type WebChartViewer struct {
	historyLen int

	mu      sync.Mutex
	history map[string][]opts.LineData
	pages   map[string][]byte
	images  map[string][]byte
	imgExt  map[string]string
}

// NewWebChartViewer creates a WebChartViewer, keeping at most
// historyLen points per series.
func NewWebChartViewer(historyLen int) *WebChartViewer {
	if historyLen <= 0 {
		historyLen = 200
	}
	return &WebChartViewer{
		historyLen: historyLen,
		history:    make(map[string][]opts.LineData),
		pages:      make(map[string][]byte),
		images:     make(map[string][]byte),
		imgExt:     make(map[string]string),
	}
}

// Render implements Renderer.
func (v *WebChartViewer) Render(name string, m measurement.Measurement, overlay Overlay, placement OverlayPlacement) error {
	switch m.Kind {
	case measurement.KindImage:
		v.mu.Lock()
		v.images[name] = m.Image
		v.imgExt[name] = m.Ext
		v.mu.Unlock()
		return nil
	default:
		return v.renderNumeric(name, m, overlay)
	}
}

func (v *WebChartViewer) renderNumeric(name string, m measurement.Measurement, overlay Overlay) error {
	if len(m.Values) == 0 {
		return nil
	}

	v.mu.Lock()
	series := append(v.history[name], opts.LineData{Value: m.Values[0]})
	if len(series) > v.historyLen {
		series = series[len(series)-v.historyLen:]
	}
	v.history[name] = series
	points := append([]opts.LineData(nil), series...)
	v.mu.Unlock()

	xs := make([]string, len(points))
	for i := range points {
		xs[i] = fmt.Sprintf("%d", i)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: fmt.Sprintf("fps %.1f  #%d", overlay.FPS, overlay.Num),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).AddSeries(name, points)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("webchart viewer: render: %w", err)
	}

	v.mu.Lock()
	v.pages[name] = buf.Bytes()
	v.mu.Unlock()
	return nil
}

// ServeHTTP serves the latest rendered page or image for a series
// named by the "series" query parameter.
func (v *WebChartViewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("series")

	v.mu.Lock()
	img, hasImg := v.images[name]
	ext := v.imgExt[name]
	page, hasPage := v.pages[name]
	v.mu.Unlock()

	if hasImg {
		w.Header().Set("Content-Type", "image/"+nonEmpty(ext, "png"))
		_, _ = w.Write(img)
		return
	}
	if hasPage {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
		return
	}
	http.NotFound(w, r)
}
