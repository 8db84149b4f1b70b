// Package timer implements the checkpoint timer described in
// spec.md §4.1: a periodic, cancelable wait primitive used by Sensor
// Readers (between reads) and Control ramps (per-tick interpolation).
//
// Grounded on the teacher's internal/timeutil Clock/Timer abstraction
// (interface-for-testability) and on prevo/misc.py's checkpoint timer
// in the distilled original source.
package timer

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so tests can drive a Timer without
// real sleeps.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Option configures a Timer at construction.
type Option func(*Timer)

// WithClock overrides the Clock, primarily for tests.
func WithClock(c Clock) Option { return func(t *Timer) { t.clock = c } }

// WithPrecise enables absolute-anchor ticking: ticks land on
// reset + k*interval instead of being relative to the previous tick.
func WithPrecise(precise bool) Option { return func(t *Timer) { t.precise = precise } }

// WithLogf overrides the warning logger (default: no-op).
func WithLogf(f func(format string, v ...any)) Option {
	return func(t *Timer) { t.logf = f }
}

// WithWarnings enables the overrun warning log line.
func WithWarnings(enabled bool) Option { return func(t *Timer) { t.warn = enabled } }

// Timer is a checkpoint timer. The zero value is not usable; use New.
type Timer struct {
	mu       sync.Mutex
	clock    Clock
	logf     func(format string, v ...any)
	warn     bool
	precise  bool
	interval time.Duration

	resetAt  time.Time
	lastTick time.Time

	stopped bool
	stopCh  chan struct{}
}

// New creates a Timer with the given interval, reset to now.
func New(interval time.Duration, opts ...Option) *Timer {
	t := &Timer{
		clock:  realClock{},
		logf:   func(string, ...any) {},
		stopCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	t.interval = interval
	t.Reset()
	return t
}

// Reset re-anchors the timer at the current time, as done at the start
// of each Control leg (spec.md §3 Lifecycle) and once by New.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.resetAt = now
	t.lastTick = now
}

// Interval returns the current tick interval.
func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetInterval atomically replaces the tick interval; a CLI-driven
// dt=X property change must not yield a torn read (spec.md §5).
func (t *Timer) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// ElapsedTime returns the time since the last Reset.
func (t *Timer) ElapsedTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock.Now().Sub(t.resetAt)
}

// IsStopped reports whether Stop has been called.
func (t *Timer) IsStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stop releases any goroutine currently blocked in Checkpt, and makes
// all future Checkpt calls return immediately.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}

// Checkpt blocks until the next scheduled tick, or until Stop is
// called. If the wall clock has already passed the next scheduled
// tick on entry, it returns immediately (logging a warning if
// warnings are enabled) instead of sleeping, compensating for a prior
// overrun by skipping ahead rather than accumulating drift.
func (t *Timer) Checkpt() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}

	now := t.clock.Now()
	next := t.nextTickLocked(now)
	overran := !next.After(now)
	interval := t.interval
	logf := t.logf
	warn := t.warn
	stopCh := t.stopCh
	t.mu.Unlock()

	if overran {
		if warn {
			logf("timer: checkpoint overran by %s (interval=%s); skipping ahead", now.Sub(next), interval)
		}
		t.mu.Lock()
		t.lastTick = now
		t.mu.Unlock()
		return
	}

	select {
	case <-t.clock.After(next.Sub(now)):
	case <-stopCh:
		return
	}

	t.mu.Lock()
	t.lastTick = t.clock.Now()
	t.mu.Unlock()
}

// nextTickLocked computes the next scheduled tick. Caller holds t.mu.
func (t *Timer) nextTickLocked(now time.Time) time.Time {
	if t.interval <= 0 {
		return now
	}
	if t.precise {
		elapsed := now.Sub(t.resetAt)
		k := elapsed/t.interval + 1
		return t.resetAt.Add(k * t.interval)
	}
	return t.lastTick.Add(t.interval)
}
