// Command recto is the composition-root binary for the Record Hub
// described in spec.md §4.6: it wires a fixed set of demo sensors into
// Recordings, starts the hub's reader/writer goroutines, drives the
// CLI on stdin, and runs the graph gate on the main goroutine.
//
// Grounded on the teacher's main.go: a sync.WaitGroup of goroutines
// joined against a context canceled by signal.NotifyContext, flag-based
// configuration, and an exit code that reflects whether startup
// succeeded (spec.md §2 "SUPPLEMENTED FEATURES: CLI exit codes").
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prevo-go/recto/internal/cli"
	"github.com/prevo-go/recto/internal/hub"
	"github.com/prevo-go/recto/internal/recording"
	"github.com/prevo-go/recto/internal/sensor"
	"github.com/prevo-go/recto/internal/timer"
	"github.com/prevo-go/recto/internal/viewer"
)

func main() {
	configPath := flag.String("config", "", "Path to a hub JSON config file (optional; a demo config is used if empty)")
	basePath := flag.String("base-path", ".", "Base directory for sinks and metadata")
	viewDir := flag.String("view-dir", "view", "Directory PlotFileViewer writes rendered frames into")
	httpListen := flag.String("http", "", "If set, serve the web chart viewer on this address (e.g. :8090)")
	flag.Parse()

	if err := run(*configPath, *basePath, *viewDir, *httpListen); err != nil {
		log.Printf("recto: fatal: %v", err)
		os.Exit(1)
	}
}

func run(configPath, basePath, viewDir, httpListen string) error {
	cfg := demoConfig()
	if configPath != "" {
		loaded, err := hub.LoadHubConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.BasePath == nil {
		cfg.BasePath = &basePath
	}

	recordings, err := buildRecordings(cfg, *cfg.BasePath)
	if err != nil {
		return fmt.Errorf("build recordings: %w", err)
	}

	gate := newViewerGate(recordings, viewDir, httpListen)

	h := hub.New(*cfg.BasePath, cfg.GetDtSave(), recordings,
		hub.WithMetadataFilename(cfg.GetMetadataFilename()),
		hub.WithGraphGate(gate),
		hub.WithDtRequest(cfg.GetDtRequest()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := cli.Run(ctx, os.Stdin, h); err != nil {
			log.Printf("recto: cli terminated: %v", err)
		}
	}()

	err = h.Run(ctx)

	h.Bus().SetStop()
	stop()
	wg.Wait()

	return err
}

// buildRecordings turns a HubConfig's per-recording entries into bound
// Recordings. The concrete sensor drivers are out of spec scope
// (spec.md §1 "Out of scope"); this demo binds every configured name
// to a MockSensor, numeric or image-producing depending on the
// entry's configured kind, leaving SerialSensor wiring as the
// real-hardware path an operator would add here.
func buildRecordings(cfg *hub.HubConfig, basePath string) ([]*recording.Recording, error) {
	recordings := make([]*recording.Recording, 0, len(cfg.Recordings))
	for _, rc := range cfg.Recordings {
		var (
			r   *recording.Recording
			err error
		)
		switch rc.GetKind() {
		case hub.RecordingKindImage:
			r, err = buildImageRecording(rc, basePath)
		default:
			r, err = buildNumericRecording(rc, basePath)
		}
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, r)
	}
	return recordings, nil
}

func buildNumericRecording(rc hub.RecordingConfig, basePath string) (*recording.Recording, error) {
	name := rc.GetName()
	sn := &sensor.MockSensor{
		NameStr: name,
		Values: []sensor.Reading{
			{Values: []float64{0}},
			{Values: []float64{1}},
			{Values: []float64{2}},
			{Values: []float64{1}},
		},
	}

	sinkPath := basePath + "/" + name + ".tsv"
	saver := recording.NewNumericSaver(sinkPath, []string{"value"})
	formatter := recording.NewNumericFormatter(name)

	tm := timer.New(rc.GetInterval())
	return recording.New(name, sn, tm, formatter, saver,
		recording.WithActive(rc.GetActive()),
		recording.WithSaving(rc.GetSaving()),
		recording.WithContinuous(rc.GetContinuous()),
	), nil
}

// buildImageRecording wires an image-kind Recording: a MockSensor
// producing a synthetic frame, an ImageSaver writing numbered frame
// files plus a timestamp sink under basePath, and an ImageFormatter
// resuming its num counter from that sink (spec.md §4.5/§6). The
// extension falls back to recording.DefaultImageExt when the config
// does not pin one explicitly.
func buildImageRecording(rc hub.RecordingConfig, basePath string) (*recording.Recording, error) {
	name := rc.GetName()
	sn := &sensor.MockSensor{
		NameStr: name,
		Values: []sensor.Reading{
			{Image: []byte("demo-frame-0")},
			{Image: []byte("demo-frame-1")},
		},
	}

	ext := rc.GetImageExt()
	if ext == "" {
		ext = recording.DefaultImageExt(rc.GetContinuous())
	}

	imgDir := basePath + "/" + name + "-images"
	tsPath := basePath + "/" + name + "-ts.tsv"
	saver := recording.NewImageSaver(imgDir, name, 5, tsPath)

	startNum, err := saver.ResumeNum()
	if err != nil {
		return nil, fmt.Errorf("resume image num for %s: %w", name, err)
	}
	formatter := recording.NewImageFormatter(name, ext, startNum)

	tm := timer.New(rc.GetInterval())
	return recording.New(name, sn, tm, formatter, saver,
		recording.WithActive(rc.GetActive()),
		recording.WithSaving(rc.GetSaving()),
		recording.WithContinuous(rc.GetContinuous()),
	), nil
}

// demoConfig is used when no -config flag is given: two numeric
// recordings at different cadences, matching spec.md §8 scenario 1
// ("Two-sensor happy path"), plus one image recording exercising the
// image Recording path end to end.
func demoConfig() *hub.HubConfig {
	fast := 0.1
	slow := 0.5
	imageDt := 1.0
	dtSave := 1.0
	return &hub.HubConfig{
		DtSaveSeconds: &dtSave,
		Recordings: []hub.RecordingConfig{
			{Name: strPtr("A"), IntervalSeconds: &fast},
			{Name: strPtr("B"), IntervalSeconds: &slow},
			{Name: strPtr("C"), Kind: strPtr(hub.RecordingKindImage), IntervalSeconds: &imageDt},
		},
	}
}

func strPtr(s string) *string { return &s }

// viewerGate implements hub.GraphGate by draining every Recording's
// plot queue into a file-based viewer window (and, if an HTTP listen
// address was given, a web chart server) until the context the hub
// passes is canceled, which happens on stop or on a signal. This
// headless composition root has no real window-close event to observe;
// per spec.md §4.9 it never touches the hub's stop latch itself.
type viewerGate struct {
	windows []*viewer.Window
}

func newViewerGate(recordings []*recording.Recording, viewDir, httpListen string) *viewerGate {
	fileViewer := viewer.NewPlotFileViewer(viewDir, 500)
	gate := &viewerGate{}

	var webViewer *viewer.WebChartViewer
	if httpListen != "" {
		webViewer = viewer.NewWebChartViewer(500)
		srv := &http.Server{Addr: httpListen, Handler: webViewer}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("recto: web chart server: %v", err)
			}
		}()
	}

	for _, r := range recordings {
		gate.windows = append(gate.windows, viewer.NewWindow(r.Name(), r.PlotQueue(), fileViewer, 200*time.Millisecond, viewer.OverlayAlongside))
		if webViewer != nil {
			gate.windows = append(gate.windows, viewer.NewWindow(r.Name(), r.PlotQueue(), webViewer, 200*time.Millisecond, viewer.OverlayAlongside))
		}
	}
	return gate
}

// DataPlot implements hub.GraphGate.
func (g *viewerGate) DataPlot(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, w := range g.windows {
		wg.Add(1)
		go func(w *viewer.Window) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				log.Printf("recto: viewer window terminated: %v", err)
			}
		}(w)
	}
	wg.Wait()
	return nil
}
