// Package program implements Program, Stairs, and Teeth leg sequencing
// described in spec.md §4.7: a Program holds an ordered list of ramp
// legs and a worker that drives them sequentially through a Control.
//
// Grounded on internal/lidar/sweep/runner.go's sequential-stage
// execution and prevo/control/program.py. Each run is tagged with a
// google/uuid run ID so overlapping or repeated program invocations
// are distinguishable in the logs.
package program

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prevo-go/recto/internal/control"
	"github.com/prevo-go/recto/internal/unitconv"
)

// Leg is one ramp step: move from V1 to V2 over Duration. V1==V2
// expresses a dwell (spec.md §4.7).
type Leg struct {
	V1       float64
	V2       float64
	Duration time.Duration
}

// Logf is the package-level logger hook, overridable in tests.
var Logf = func(format string, v ...any) { fmt.Printf(format+"\n", v...) }

// Program is a repeatable sequence of ramp legs driven through one
// Control (spec.md §4.7).
type Program struct {
	ctrl   *control.Control
	legs   []Leg
	repeat int
}

// New creates a Program that drives ctrl through legs, repeat times.
// repeat < 1 is treated as 1.
func New(ctrl *control.Control, legs []Leg, repeat int) *Program {
	if repeat < 1 {
		repeat = 1
	}
	return &Program{ctrl: ctrl, legs: legs, repeat: repeat}
}

// Run sequentially invokes Ramp for each leg, repeat times, exiting
// cleanly after the current leg's cancellation if ctx is canceled.
func (p *Program) Run(ctx context.Context) error {
	runID := uuid.NewString()
	Logf("program %s: run started, %d legs x%d", runID, len(p.legs), p.repeat)

	for iteration := 0; iteration < p.repeat; iteration++ {
		for i, leg := range p.legs {
			select {
			case <-ctx.Done():
				Logf("program %s: stopped before leg %d (iteration %d)", runID, i, iteration)
				return nil
			default:
			}

			result := p.ctrl.Ramp(ctx, leg.Duration, leg.V1, leg.V2)
			if err := <-result; err != nil {
				if ctx.Err() != nil {
					Logf("program %s: stopped during leg %d (iteration %d)", runID, i, iteration)
					return nil
				}
				return fmt.Errorf("program %s: leg %d (iteration %d): %w", runID, i, iteration, err)
			}
		}
	}

	Logf("program %s: run complete", runID)
	return nil
}

// NewStairs builds a Program driving ctrl through a Stairs expansion:
// a sequence of plateau values expanded into legs alternating a dwell
// and a zero-duration transition, so that all change occurs in
// zero-duration transitions and every plateau is a true dwell
// (spec.md §4.7).
func NewStairs(ctrl *control.Control, values []float64, plateau time.Duration, repeat int) *Program {
	legs := make([]Leg, 0, 2*len(values))
	for i, v := range values {
		legs = append(legs, Leg{V1: v, V2: v, Duration: plateau})
		next := values[(i+1)%len(values)]
		legs = append(legs, Leg{V1: v, V2: next, Duration: 0})
	}
	return New(ctrl, legs, repeat)
}

// TeethStart selects where in the Teeth cycle the expansion begins.
type TeethStart string

const (
	// TeethStartPlateau begins at the first plateau (default).
	TeethStartPlateau TeethStart = ""
	// TeethStartRamp begins mid-cycle, at the first ramp, via a
	// circular permutation of legs (spec.md §4.7).
	TeethStartRamp TeethStart = "ramp"
)

// NewTeeth builds a Program driving ctrl through alternating plateau
// dwells and ramps whose durations are |Δv|/slope, with slope
// converted to per-second via unitconv. start=TeethStartRamp performs
// a circular permutation of legs to begin mid-cycle (spec.md §4.7).
func NewTeeth(ctrl *control.Control, plateaus []float64, plateauDuration time.Duration, slope float64, unit string, start TeethStart, repeat int) (*Program, error) {
	perSecond, err := unitconv.PerSecond(slope, unit)
	if err != nil {
		return nil, err
	}
	if perSecond <= 0 {
		return nil, fmt.Errorf("program: teeth slope must be positive, got %g%s", slope, unit)
	}

	legs := make([]Leg, 0, 2*len(plateaus))
	for i, v := range plateaus {
		next := plateaus[(i+1)%len(plateaus)]
		rampSecs := abs(next-v) / perSecond
		legs = append(legs, Leg{V1: v, V2: v, Duration: plateauDuration})
		legs = append(legs, Leg{V1: v, V2: next, Duration: time.Duration(rampSecs * float64(time.Second))})
	}

	if start == TeethStartRamp && len(legs) > 0 {
		legs = append(legs[1:], legs[0])
	}

	return New(ctrl, legs, repeat), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
