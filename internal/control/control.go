// Package control implements the Control Core described in spec.md
// §4.7: non-blocking ramps with dwell and range-clamped
// interpolation, driven by a checkpoint Timer.
//
// Grounded on internal/lidar/sweep/ranges.go and
// internal/lidar/sweep/sampler.go (parameter-range clamping and timed
// sampling) and on prevo/control/control.py's ramp/dwell state
// machine.
package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prevo-go/recto/internal/timer"
	"gonum.org/v1/gonum/floats"
)

// Actuator is the device-facing capability a Control drives: apply a
// value, and read back the value currently in effect.
type Actuator interface {
	Apply(ctx context.Context, v float64) error
	Read(ctx context.Context) (float64, error)
}

// Range clamps a value to [Min, Max]. A nil bound is treated as
// unbounded (spec.md §4.7 "vmin/vmax of None").
type Range struct {
	Min *float64
	Max *float64
}

// Clamp returns v restricted to the range, and whether clamping
// occurred.
func (r Range) Clamp(v float64) (float64, bool) {
	if r.Min != nil && v < *r.Min {
		return *r.Min, true
	}
	if r.Max != nil && v > *r.Max {
		return *r.Max, true
	}
	return v, false
}

// Logf is the package-level logger hook, overridable in tests.
var Logf = func(format string, v ...any) { fmt.Printf(format+"\n", v...) }

// Option configures a Control at construction.
type Option func(*Control)

// WithRange sets the clamp range (default unbounded).
func WithRange(r Range) Option { return func(c *Control) { c.limits = r } }

// WithConvertInput sets the hook that transforms a user-facing
// quantity into the device-facing quantity before clamping and
// applying (spec.md §4.7).
func WithConvertInput(f func(float64) float64) Option {
	return func(c *Control) { c.convertInput = f }
}

// WithReadbackTolerance sets the absolute tolerance used when
// comparing a read-back value against the applied target (default
// 1e-6).
func WithReadbackTolerance(eps float64) Option {
	return func(c *Control) { c.readbackEps = eps }
}

// Control drives one Actuator through ramps and dwells (spec.md §4.7).
type Control struct {
	name         string
	actuator     Actuator
	timer        *timer.Timer
	limits       Range
	convertInput func(float64) float64
	readbackEps  float64

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// New creates a Control named name driving actuator, ticking on tm.
func New(name string, actuator Actuator, tm *timer.Timer, opts ...Option) *Control {
	c := &Control{
		name:        name,
		actuator:    actuator,
		timer:       tm,
		readbackEps: 1e-6,
		stopCh:      make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stop cancels any ramp running on this Control within one tick.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
	c.timer.Stop()
}

func (c *Control) stopChannel() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh
}

// Ramp spawns a non-blocking worker that moves the actuator from v1 to
// v2 over duration, returning a channel that receives the worker's
// final error (nil on normal or stop-triggered completion) and is
// then closed (spec.md §4.7).
func (c *Control) Ramp(ctx context.Context, duration time.Duration, v1, v2 float64) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- c.runRamp(ctx, duration, v1, v2)
	}()
	return result
}

func (c *Control) runRamp(ctx context.Context, duration time.Duration, v1, v2 float64) error {
	c.timer.Reset()
	stopCh := c.stopChannel()

	target := v2
	if c.convertInput != nil {
		target = c.convertInput(target)
	}

	if v1 == v2 {
		return c.dwell(ctx, stopCh, target, duration)
	}

	durationSecs := duration.Seconds()
	for {
		select {
		case <-ctx.Done():
			Logf("control %s: ramp canceled by context", c.name)
			return ctx.Err()
		case <-stopCh:
			Logf("control %s: ramp stopped manually", c.name)
			return nil
		default:
		}

		elapsed := c.timer.ElapsedTime().Seconds()
		if elapsed > durationSecs {
			return c.applyFinal(ctx, target)
		}

		frac := elapsed / durationSecs
		raw := v1 + frac*(v2-v1)
		if c.convertInput != nil {
			raw = c.convertInput(raw)
		}
		want, clamped := c.limits.Clamp(raw)
		if clamped {
			Logf("control %s: ramp value %g outside of allowed range, clamped to %g", c.name, raw, want)
		}

		if err := c.actuator.Apply(ctx, want); err != nil {
			return fmt.Errorf("control %s: apply: %w", c.name, err)
		}
		if got, err := c.actuator.Read(ctx); err == nil && !floats.EqualWithinAbs(got, want, c.readbackEps) {
			Logf("control %s: read-back %g differs from target %g, retrying next tick", c.name, got, want)
		}

		switch c.waitTick(ctx, stopCh) {
		case tickStopped:
			Logf("control %s: ramp stopped manually", c.name)
			return nil
		case tickCanceled:
			return ctx.Err()
		}
	}
}

func (c *Control) applyFinal(ctx context.Context, target float64) error {
	want, clamped := c.limits.Clamp(target)
	if clamped {
		Logf("control %s: final ramp value %g outside of allowed range, clamped to %g", c.name, target, want)
	}
	if err := c.actuator.Apply(ctx, want); err != nil {
		return fmt.Errorf("control %s: final apply: %w", c.name, err)
	}
	return nil
}

// dwell applies target once, then verifies by read-back on every tick
// until the value matches, and holds until duration has elapsed since
// the timer reset; stop ends it early (spec.md §4.7).
func (c *Control) dwell(ctx context.Context, stopCh <-chan struct{}, target float64, duration time.Duration) error {
	want, clamped := c.limits.Clamp(target)
	if clamped {
		Logf("control %s: dwell value %g outside of allowed range, clamped to %g", c.name, target, want)
	}

	Logf("control %s: dwelling started at %g", c.name, want)
	if err := c.actuator.Apply(ctx, want); err != nil {
		return fmt.Errorf("control %s: dwell apply: %w", c.name, err)
	}

	verified := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			Logf("control %s: dwell stopped manually", c.name)
			return nil
		default:
		}

		if !verified {
			got, err := c.actuator.Read(ctx)
			verified = err == nil && floats.EqualWithinAbs(got, want, c.readbackEps)
		}
		if verified && c.timer.ElapsedTime() > duration {
			Logf("control %s: dwelling finished at %g", c.name, want)
			return nil
		}

		switch c.waitTick(ctx, stopCh) {
		case tickStopped:
			Logf("control %s: dwell stopped manually", c.name)
			return nil
		case tickCanceled:
			return ctx.Err()
		}
	}
}

// tickOutcome distinguishes why waitTick returned.
type tickOutcome int

const (
	tickArrived tickOutcome = iota
	tickStopped
	tickCanceled
)

// waitTick blocks until the Control's Timer fires its next checkpoint,
// ctx is canceled, or stopCh is closed, whichever happens first.
func (c *Control) waitTick(ctx context.Context, stopCh <-chan struct{}) tickOutcome {
	done := make(chan struct{})
	go func() {
		c.timer.Checkpt()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return tickCanceled
	case <-stopCh:
		return tickStopped
	case <-done:
		return tickArrived
	}
}
