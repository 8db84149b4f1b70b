// Package reader implements the Sensor Reader task described in
// spec.md §4.3: one goroutine per Recording that reads its Sensor on
// every Timer tick, formats successful reads, and fans the result out
// to the Recording's save and plot queues.
//
// Grounded on the teacher's serial.go Monitor(ctx) select loop
// (command channel vs. read vs. ctx.Done()), adapted here to the
// read/format/enqueue contract and to the Recording's own Timer
// instead of a shared ticker.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prevo-go/recto/internal/recording"
	"github.com/prevo-go/recto/internal/sensor"
)

// Logf is the package-level logger hook, overridable in tests and by
// the composition root, mirroring the teacher's internal/monitoring
// style of a package-level override-able log function.
var Logf = func(format string, v ...any) { fmt.Printf(format+"\n", v...) }

// InitialPropertySettings maps a property name to the string value it
// should be set to once, applied after the Sensor is opened and
// before the read loop begins (spec.md §4.3 "Initial property
// application").
type InitialPropertySettings map[string]string

// Graph reports whether the plot queue should receive formatted
// measurements. It is read once per tick so a hub-level toggle of
// plotting takes effect without restarting the reader.
type Graph interface {
	Enabled() bool
}

// GraphFunc adapts a func() bool to Graph.
type GraphFunc func() bool

// Enabled implements Graph.
func (f GraphFunc) Enabled() bool { return f() }

// Run executes the Sensor Reader loop for r until ctx is canceled. It
// opens r's Sensor, applies initialSettings, then reads on every tick
// of r.Timer(), formatting and enqueuing successful reads per the
// Recording's saving/graph flags. A failed read is logged once on its
// first occurrence and once on recovery; the loop never terminates on
// a read failure.
func Run(ctx context.Context, r *recording.Recording, graph Graph, initialSettings InitialPropertySettings) error {
	sn := r.Sensor()
	if err := sn.Open(ctx); err != nil {
		return fmt.Errorf("reader %s: open sensor: %w", r.Name(), err)
	}
	defer func() {
		if err := sn.Close(); err != nil {
			Logf("reader %s: close sensor: %v", r.Name(), err)
		}
	}()

	if err := applyInitialSettings(r, initialSettings); err != nil {
		return fmt.Errorf("reader %s: initial property settings: %w", r.Name(), err)
	}

	var failing atomic.Bool

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if r.Active() {
			raw, err := sn.Read(ctx)
			if err != nil {
				if errors.Is(err, sensor.ErrReadFailed) {
					if !failing.Swap(true) {
						Logf("reader %s: sensor read failing: %v", r.Name(), err)
					}
				} else {
					return fmt.Errorf("reader %s: non-recoverable read error: %w", r.Name(), err)
				}
			} else {
				if failing.Swap(false) {
					Logf("reader %s: sensor read resumed", r.Name())
				}

				m := r.FormatMeasurement(raw, time.Now())
				if !m.IsNull() {
					if r.Saving() {
						r.SaveQueue().Put(m)
					}
					if graph != nil && graph.Enabled() {
						r.PlotQueue().Put(m)
					}
				}
			}
		}

		if r.Continuous() {
			if backoff := r.ContinuousMinBackoff(); backoff > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
				}
			}
			continue
		}

		done := make(chan struct{})
		go func() {
			r.Timer().Checkpt()
			close(done)
		}()
		select {
		case <-ctx.Done():
			r.Timer().Stop()
			<-done
			return nil
		case <-done:
		}
	}
}

func applyInitialSettings(r *recording.Recording, settings InitialPropertySettings) error {
	if len(settings) == 0 {
		return nil
	}
	byName := make(map[string]recording.Property, len(r.Properties()))
	for _, p := range r.Properties() {
		byName[p.Name] = p
	}
	for name, value := range settings {
		p, ok := byName[name]
		if !ok {
			continue
		}
		if err := p.Set(value); err != nil {
			return fmt.Errorf("property %s=%s: %w", name, value, err)
		}
	}
	return nil
}
