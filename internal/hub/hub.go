// Package hub implements the Record Hub described in spec.md §4.6:
// the composition root that fans out per-Recording reader/writer
// goroutines, owns the shared stop/graph event bus, brokers CLI
// property writes, writes the startup metadata artifact, and runs the
// graph gate on the main goroutine.
//
// Grounded on the teacher's main.go composition (sync.WaitGroup plus
// signal.NotifyContext, one goroutine per task, joined on exit) and on
// internal/serialmux's event-fan-out idiom for the property broker.
package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prevo-go/recto/internal/fsutil"
	"github.com/prevo-go/recto/internal/metadata"
	"github.com/prevo-go/recto/internal/reader"
	"github.com/prevo-go/recto/internal/recording"
	"github.com/prevo-go/recto/internal/writer"
)

// Logf is the package-level logger hook, overridable in tests and by
// the composition root.
var Logf = func(format string, v ...any) { fmt.Printf(format+"\n", v...) }

// GraphGate is the pluggable viewer entry point the hub drives on its
// main goroutine while the graph gate is set (spec.md §4.6, §9 "Global
// matplotlib state / GUI toolkit selection": the hub depends only on
// this minimal interface, never on a concrete toolkit).
type GraphGate interface {
	// DataPlot blocks until the viewer window closes or ctx is
	// canceled, and is expected to clear the graph gate (and may set
	// stop) on the bus as appropriate.
	DataPlot(ctx context.Context) error
}

// Hub is the Record Hub: the set of Recordings, the shared event bus,
// and the startup/shutdown composition around them.
type Hub struct {
	bus        *EventBus
	recordings map[string]*recording.Recording
	order      []string

	dtSave    time.Duration
	dtRequest time.Duration

	fs               fsutil.FileSystem
	basePath         string
	metadataFilename string

	gate GraphGate

	initialSettings map[string]reader.InitialPropertySettings
}

// Option configures a Hub at construction.
type Option func(*Hub)

// WithFileSystem overrides the FileSystem used for the metadata write,
// primarily for tests.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(h *Hub) { h.fs = fs }
}

// WithMetadataFilename overrides the metadata artifact's base filename
// (default "metadata.json").
func WithMetadataFilename(name string) Option {
	return func(h *Hub) { h.metadataFilename = name }
}

// WithGraphGate sets the pluggable viewer entry point the graph gate
// loop drives (spec.md §4.6).
func WithGraphGate(gate GraphGate) Option {
	return func(h *Hub) { h.gate = gate }
}

// WithDtRequest overrides how long the graph gate waits on stop while
// graph is unset (default: dtSave). Spec.md §4.6 calls this timeout
// dt_request.
func WithDtRequest(d time.Duration) Option {
	return func(h *Hub) { h.dtRequest = d }
}

// WithInitialPropertySettings registers the properties applied once to
// the named Recording's reader before its read loop begins
// (spec.md §4.3).
func WithInitialPropertySettings(recordingName string, settings reader.InitialPropertySettings) Option {
	return func(h *Hub) { h.initialSettings[recordingName] = settings }
}

// New creates a Hub over recordings, writing sinks under basePath and
// cycling writers every dtSave.
func New(basePath string, dtSave time.Duration, recordings []*recording.Recording, opts ...Option) *Hub {
	h := &Hub{
		bus:              NewEventBus(),
		recordings:       make(map[string]*recording.Recording, len(recordings)),
		basePath:         basePath,
		dtSave:           dtSave,
		dtRequest:        dtSave,
		metadataFilename: "metadata.json",
		fs:               fsutil.OSFileSystem{},
		initialSettings:  make(map[string]reader.InitialPropertySettings),
	}
	for _, r := range recordings {
		h.recordings[r.Name()] = r
		h.order = append(h.order, r.Name())
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Bus returns the Hub's shared event bus.
func (h *Hub) Bus() *EventBus { return h.bus }

// Recording returns the named Recording, or nil if unknown.
func (h *Hub) Recording(name string) *recording.Recording { return h.recordings[name] }

// SetEvent implements cli.Broker: "graph" sets the graph gate, "stop"
// sets the shutdown latch. Any other event name is a no-op error
// (spec.md §7 "CLI parse error | Log and continue" handles the
// surfacing).
func (h *Hub) SetEvent(name string) error {
	switch name {
	case "graph":
		h.bus.SetGraph(true)
		return nil
	case "stop":
		h.bus.SetStop()
		return nil
	default:
		return fmt.Errorf("hub: unknown event %q", name)
	}
}

// SetProperty implements cli.Broker's property broker contract
// (spec.md §4.6). recordingName == "" is a generic command: it fans
// out to every Recording exposing property. A non-empty recordingName
// is targeted: it applies only to that Recording. Unknown properties
// on a given Recording are silently ignored, matching the spec's
// "unknown properties are silently ignored" rule; an unknown
// recordingName on a targeted command is reported as an error.
func (h *Hub) SetProperty(recordingName, property, value string) error {
	if recordingName != "" {
		r, ok := h.recordings[recordingName]
		if !ok {
			return fmt.Errorf("hub: unknown recording %q", recordingName)
		}
		return setIfPresent(r, property, value)
	}

	for _, name := range h.order {
		if err := setIfPresent(h.recordings[name], property, value); err != nil {
			Logf("hub: property %s=%s on %s: %v", property, value, name, err)
		}
	}
	return nil
}

func setIfPresent(r *recording.Recording, property, value string) error {
	for _, p := range r.Properties() {
		if p.Name == property {
			return p.Set(value)
		}
	}
	return nil
}

// Run starts every Recording's reader and writer, writes the metadata
// artifact, and drives the graph gate on the calling goroutine until
// stop is set (spec.md §4.6). It returns once every task has joined.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.writeMetadata(); err != nil {
		return fmt.Errorf("hub: metadata: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, name := range h.order {
		r := h.recordings[name]
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := reader.Run(runCtx, r, h.bus, h.initialSettings[r.Name()]); err != nil {
				Logf("hub: reader %s terminated: %v", r.Name(), err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := writer.Run(runCtx, r, h.dtSave); err != nil {
				Logf("hub: writer %s terminated: %v", r.Name(), err)
			}
		}()
	}

	h.runGraphGate(ctx)
	cancel()
	wg.Wait()
	return nil
}

// runGraphGate implements spec.md §4.6's "Graph gate": while stop is
// unset, block in DataPlot() whenever graph is set; otherwise wait on
// stop with a timeout. The context handed to DataPlot is canceled as
// soon as stop is set, so a blocking viewer returns on stop.
func (h *Hub) runGraphGate(ctx context.Context) {
	dtRequest := h.dtRequest
	if dtRequest <= 0 {
		dtRequest = time.Second
	}

	gateCtx, cancelGate := context.WithCancel(ctx)
	defer cancelGate()
	go func() {
		select {
		case <-h.bus.StopCh():
			cancelGate()
		case <-gateCtx.Done():
		}
	}()

	for !h.bus.Stopped() {
		select {
		case <-ctx.Done():
			h.bus.SetStop()
			return
		default:
		}

		if h.bus.Graph() && h.gate != nil {
			if err := h.gate.DataPlot(gateCtx); err != nil {
				Logf("hub: graph gate: %v", err)
			}
			continue
		}

		select {
		case <-h.bus.StopCh():
		case <-ctx.Done():
			h.bus.SetStop()
		case <-time.After(dtRequest):
		}
	}
}

// writeMetadata writes the hub's metadata artifact once, before any
// writer opens its sink (spec.md §4.6, §5 "no contention").
func (h *Hub) writeMetadata() error {
	sessionIDs := make(map[string]string, len(h.order))
	for _, name := range h.order {
		sessionIDs[name] = h.recordings[name].SessionID()
	}
	rec := metadata.NewRecord(time.Now(), h.order, sessionIDs, nil)
	path, err := metadata.Write(h.fs, h.basePath, h.metadataFilename, rec)
	if err != nil {
		return err
	}
	Logf("hub: wrote metadata to %s", path)
	return nil
}
