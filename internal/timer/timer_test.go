package timer_test

import (
	"testing"
	"time"

	"github.com/prevo-go/recto/internal/testutil"
	"github.com/prevo-go/recto/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpt_WaitsForInterval(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tm := timer.New(100*time.Millisecond, timer.WithClock(clock))

	done := make(chan struct{})
	go func() {
		tm.Checkpt()
		close(done)
	}()

	// give the goroutine a chance to register its waiter
	for clock.PendingWaiters() == 0 {
		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
		t.Fatal("checkpt returned before the interval elapsed")
	default:
	}

	clock.Advance(100 * time.Millisecond)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checkpt did not return after the clock advanced")
	}
}

func TestCheckpt_OverrunSkipsRatherThanAccumulates(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	logf := &testutil.CapturingLogf{}
	tm := timer.New(10*time.Millisecond, timer.WithClock(clock), timer.WithWarnings(true), timer.WithLogf(logf.Logf))

	// Simulate a long-running tick that overran the interval several
	// times over before calling Checkpt.
	clock.Advance(55 * time.Millisecond)

	start := time.Now()
	tm.Checkpt()
	require.Less(t, time.Since(start), 50*time.Millisecond, "checkpt should return immediately on overrun")
	assert.True(t, logf.Contains("overran"))
}

func TestStop_ReleasesWaiterImmediately(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tm := timer.New(time.Hour, timer.WithClock(clock))

	done := make(chan struct{})
	go func() {
		tm.Checkpt()
		close(done)
	}()

	for clock.PendingWaiters() == 0 {
		time.Sleep(time.Millisecond)
	}

	tm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not release the blocked checkpt")
	}
	assert.True(t, tm.IsStopped())
}

func TestSetInterval_TakesEffectOnNextCheckpt(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tm := timer.New(time.Second, timer.WithClock(clock))
	require.Equal(t, time.Second, tm.Interval())

	tm.SetInterval(50 * time.Millisecond)
	require.Equal(t, 50*time.Millisecond, tm.Interval())
}

func TestPreciseMode_AnchorsToResetPlusKInterval(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tm := timer.New(10*time.Millisecond, timer.WithClock(clock), timer.WithPrecise(true))

	// Advance by 25ms: precise mode should schedule the next tick at
	// the next whole multiple of the interval (30ms), not 10ms after
	// now (35ms would accumulate drift).
	clock.Advance(25 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		tm.Checkpt()
		close(done)
	}()
	for clock.PendingWaiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	clock.Advance(5 * time.Millisecond) // now at 30ms, the anchor
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("precise checkpt did not fire at the expected anchor")
	}
}
