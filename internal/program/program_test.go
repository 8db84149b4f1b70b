package program_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/control"
	"github.com/prevo-go/recto/internal/program"
	"github.com/prevo-go/recto/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantActuator struct {
	mu   sync.Mutex
	last float64
}

func (a *instantActuator) Apply(ctx context.Context, v float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = v
	return nil
}

func (a *instantActuator) Read(ctx context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, nil
}

func TestStairs_ExpandsIntoDwellThenTransitionLegs(t *testing.T) {
	act := &instantActuator{}
	tm := timer.New(time.Millisecond)
	c := control.New("rh", act, tm)

	p := program.NewStairs(c, []float64{90, 70, 50, 30}, time.Millisecond, 1)
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 90.0, act.last, "Stairs wraps back to the first value at the end of one repeat")
}

func TestTeeth_BuildsProgramForKnownSlopeUnit(t *testing.T) {
	p, err := program.NewTeeth(nil, []float64{3000, 2000, 3000, 1000}, 80*time.Minute, 25, "/min", program.TeethStartRamp, 1)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestTeeth_RejectsUnknownUnit(t *testing.T) {
	_, err := program.NewTeeth(nil, []float64{1, 2}, time.Minute, 1, "/fortnight", program.TeethStartPlateau, 1)
	assert.Error(t, err)
}

func TestRun_RepeatsFullLegSequence(t *testing.T) {
	act := &instantActuator{}
	tm := timer.New(time.Millisecond)
	c := control.New("x", act, tm)

	legs := []program.Leg{
		{V1: 1, V2: 1, Duration: time.Millisecond},
		{V1: 1, V2: 2, Duration: 0},
	}
	p := program.New(c, legs, 3)
	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 2.0, act.last)
}

func TestRun_StopsCleanlyOnContextCancel(t *testing.T) {
	act := &instantActuator{}
	tm := timer.New(time.Millisecond)
	c := control.New("x", act, tm)

	legs := []program.Leg{
		{V1: 0, V2: 1000, Duration: time.Hour},
	}
	p := program.New(c, legs, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("program did not stop within timeout")
	}
}
