// Package recording implements the per-sensor Recording described in
// spec.md §3/§4.5: the binding of a Sensor to its formatter, sink,
// save/plot queues, Timer, and controlled properties.
package recording

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prevo-go/recto/internal/measurement"
	"github.com/prevo-go/recto/internal/queue"
	"github.com/prevo-go/recto/internal/sensor"
	"github.com/prevo-go/recto/internal/timer"
)

// Formatter turns a raw Sensor reading into a Measurement, enriching
// it with the Recording's name, capture time, and dt since the prior
// successful read. It may return measurement.Null() to suppress
// persistence of a given reading (spec.md §4.5).
type Formatter interface {
	Format(raw sensor.Reading, now time.Time, dt time.Duration) measurement.Measurement
}

// Saver persists Measurements to a Recording's sink(s). The Writer
// task drives Open/Save/Close once per save cycle (spec.md §4.4).
type Saver interface {
	Open() error
	Save(m measurement.Measurement) error
	Close() error
}

// Resumable is implemented by Savers carrying monotonic state (the
// image Saver's num counter) that must be restored from an existing
// sink when a session resumes.
type Resumable interface {
	ResumeNum() (int, error)
}

// Recording is the per-sensor state described in spec.md §3.
type Recording struct {
	mu sync.RWMutex

	name       string
	sessionID  string
	sensor     sensor.Sensor
	timer      *timer.Timer
	active     bool
	saving     bool
	continuous bool
	minBackoff time.Duration

	saveQueue *queue.Queue[measurement.Measurement]
	plotQueue *queue.Queue[measurement.Measurement]

	formatter Formatter
	saver     Saver

	lastReadAt  time.Time
	hasLastRead bool

	extraProperties []Property
}

// Option configures a Recording at construction.
type Option func(*Recording)

// WithActive sets the initial active flag (default true).
func WithActive(active bool) Option { return func(r *Recording) { r.active = active } }

// WithSaving sets the initial saving flag (default true).
func WithSaving(saving bool) Option { return func(r *Recording) { r.saving = saving } }

// WithContinuous disables inter-read sleep (spec.md §4.3).
func WithContinuous(continuous bool) Option { return func(r *Recording) { r.continuous = continuous } }

// WithContinuousMinBackoff sets an optional minimum sleep between
// reads even in continuous mode, guarding against a hot loop on a
// permanently failing sensor (spec.md §9 open question (iii)).
// Default zero preserves the no-sleep contract.
func WithContinuousMinBackoff(d time.Duration) Option {
	return func(r *Recording) { r.minBackoff = d }
}

// WithProperty registers an additional sensor-specific controlled
// property (e.g. exposure, averaging) alongside dt/active/saving.
func WithProperty(p Property) Option {
	return func(r *Recording) { r.extraProperties = append(r.extraProperties, p) }
}

// New creates a Recording bound to sn, ticking on tm, formatting with
// f and persisting with s.
func New(name string, sn sensor.Sensor, tm *timer.Timer, f Formatter, s Saver, opts ...Option) *Recording {
	r := &Recording{
		name:      name,
		sessionID: uuid.NewString(),
		sensor:    sn,
		timer:     tm,
		active:    true,
		saving:    true,
		saveQueue: queue.New[measurement.Measurement](),
		plotQueue: queue.New[measurement.Measurement](),
		formatter: f,
		saver:     s,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name returns the Recording's stable name, shared with its Sensor.
func (r *Recording) Name() string { return r.name }

// SessionID returns the UUID generated for this Recording at
// construction time, embedded by the hub into the metadata artifact
// so that distinct recording sessions for the same sensor name (e.g.
// across restarts) are distinguishable (spec.md §4.6 "Metadata").
func (r *Recording) SessionID() string { return r.sessionID }

// Sensor returns the bound Sensor.
func (r *Recording) Sensor() sensor.Sensor { return r.sensor }

// Timer returns the Recording's periodic Timer.
func (r *Recording) Timer() *timer.Timer { return r.timer }

// Active reports whether the reader should attempt reads.
func (r *Recording) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// SetActive atomically updates the active flag.
func (r *Recording) SetActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = active
}

// Saving reports whether successful reads should be enqueued for
// persistence.
func (r *Recording) Saving() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saving
}

// SetSaving atomically updates the saving flag.
func (r *Recording) SetSaving(saving bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saving = saving
}

// Continuous reports whether the reader should skip inter-read sleep.
func (r *Recording) Continuous() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.continuous
}

// ContinuousMinBackoff returns the optional minimum sleep applied even
// in continuous mode.
func (r *Recording) ContinuousMinBackoff() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minBackoff
}

// SaveQueue returns the Recording's save-pipe queue.
func (r *Recording) SaveQueue() *queue.Queue[measurement.Measurement] { return r.saveQueue }

// PlotQueue returns the Recording's plot-pipe queue.
func (r *Recording) PlotQueue() *queue.Queue[measurement.Measurement] { return r.plotQueue }

// FormatMeasurement computes dt since the previous successful read,
// formats the raw reading via the bound Formatter, and advances the
// "previous read" bookkeeping used to compute the next dt.
func (r *Recording) FormatMeasurement(raw sensor.Reading, now time.Time) measurement.Measurement {
	r.mu.Lock()
	var dt time.Duration
	if r.hasLastRead {
		dt = now.Sub(r.lastReadAt)
	}
	r.lastReadAt = now
	r.hasLastRead = true
	r.mu.Unlock()

	return r.formatter.Format(raw, now, dt)
}

// Open opens the Recording's sink(s) for a save cycle.
func (r *Recording) Open() error { return r.saver.Open() }

// Save persists one measurement to the already-open sink(s).
func (r *Recording) Save(m measurement.Measurement) error { return r.saver.Save(m) }

// CloseSink closes the Recording's sink(s).
func (r *Recording) CloseSink() error { return r.saver.Close() }

// Properties returns the controlled property set: dt, active, saving,
// plus any sensor-specific extras registered via WithProperty
// (spec.md §4.5, §6).
func (r *Recording) Properties() []Property {
	props := []Property{
		{
			Name: "dt",
			Get:  func() string { return strconv.FormatFloat(r.timer.Interval().Seconds(), 'f', -1, 64) },
			Set: func(value string) error {
				secs, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return err
				}
				r.timer.SetInterval(time.Duration(secs * float64(time.Second)))
				return nil
			},
		},
		{
			Name: "active",
			Get:  func() string { return strconv.FormatBool(r.Active()) },
			Set: func(value string) error {
				b, err := strconv.ParseBool(value)
				if err != nil {
					return err
				}
				r.SetActive(b)
				return nil
			},
		},
		{
			Name: "saving",
			Get:  func() string { return strconv.FormatBool(r.Saving()) },
			Set: func(value string) error {
				b, err := strconv.ParseBool(value)
				if err != nil {
					return err
				}
				r.SetSaving(b)
				return nil
			},
		},
	}
	return append(props, r.extraProperties...)
}
