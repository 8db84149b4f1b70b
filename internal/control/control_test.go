package control_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/control"
	"github.com/prevo-go/recto/internal/testutil"
	"github.com/prevo-go/recto/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeActuator records every applied value and reads back the last
// one applied, simulating an instantaneous device.
type fakeActuator struct {
	mu      sync.Mutex
	applied []float64
	last    float64
}

func (a *fakeActuator) Apply(ctx context.Context, v float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, v)
	a.last = v
	return nil
}

func (a *fakeActuator) Read(ctx context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, nil
}

func (a *fakeActuator) snapshot() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, len(a.applied))
	copy(out, a.applied)
	return out
}

func TestRamp_ClampsValuesOutsideRange(t *testing.T) {
	act := &fakeActuator{}
	tm := timer.New(2 * time.Millisecond)
	min, max := 0.0, 100.0
	c := control.New("x", act, tm, control.WithRange(control.Range{Min: &min, Max: &max}))

	result := c.Ramp(context.Background(), 20*time.Millisecond, 50, 150)
	require.NoError(t, <-result)

	for _, v := range act.snapshot() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	assert.Equal(t, 100.0, act.last)
}

func TestRamp_ClampLogsOutsideAllowedRange(t *testing.T) {
	logf := &testutil.CapturingLogf{}
	orig := control.Logf
	control.Logf = logf.Logf
	defer func() { control.Logf = orig }()

	act := &fakeActuator{}
	tm := timer.New(2 * time.Millisecond)
	min, max := 0.0, 100.0
	c := control.New("x", act, tm, control.WithRange(control.Range{Min: &min, Max: &max}))

	result := c.Ramp(context.Background(), 20*time.Millisecond, 50, 150)
	require.NoError(t, <-result)

	assert.True(t, logf.Contains("outside of allowed range"))
	assert.Equal(t, 100.0, act.last)
}

func TestRamp_DwellWhenEndpointsEqual(t *testing.T) {
	act := &fakeActuator{}
	tm := timer.New(2 * time.Millisecond)
	c := control.New("x", act, tm)

	result := c.Ramp(context.Background(), 20*time.Millisecond, 42, 42)
	require.NoError(t, <-result)

	assert.Equal(t, []float64{42}, act.snapshot())
}

func TestStop_CancelsRampWithinOneTick(t *testing.T) {
	act := &fakeActuator{}
	tm := timer.New(2 * time.Millisecond)
	c := control.New("x", act, tm)

	result := c.Ramp(context.Background(), time.Hour, 0, 1000)
	time.Sleep(10 * time.Millisecond)
	c.Stop()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ramp did not stop within timeout")
	}
	assert.Less(t, act.last, 1000.0)
}

func TestClamp_IsIdempotent(t *testing.T) {
	min, max := 0.0, 100.0
	r := control.Range{Min: &min, Max: &max}

	for _, v := range []float64{-50, 50, 150, 0, 100} {
		once, _ := r.Clamp(v)
		twice, _ := r.Clamp(once)
		assert.Equal(t, once, twice)
	}
}
