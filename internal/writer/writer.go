// Package writer implements the Writer task described in spec.md
// §4.4: per Recording, a loop that opens the sink, drains the save
// queue, watches for backlog growth, and closes the sink once per
// dt_save cycle, finishing with a lossless drain on shutdown.
//
// Grounded on internal/lidar/recorder/recorder.go's open/rotate/close
// sink cycle and on the teacher's internal/monitoring.Logf one-shot
// logging style for the threshold-crossing warnings.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/prevo-go/recto/internal/recording"
)

// Logf is the package-level logger hook, overridable in tests and by
// the composition root.
var Logf = func(format string, v ...any) { fmt.Printf(format+"\n", v...) }

// thresholds are the ordered backlog sizes that trigger a one-shot
// warning when first crossed upward, and a one-shot recovery message
// when next crossed downward (spec.md §4.4).
var thresholds = []int{100, 1000, 10000}

// Run executes the Writer loop for r until ctx is canceled, waking
// every dtSave to open, drain, and close r's sink. On cancellation it
// performs one final lossless drain before returning.
func Run(ctx context.Context, r *recording.Recording, dtSave time.Duration) error {
	crossed := make([]bool, len(thresholds))

	for {
		if err := drainCycle(r, crossed); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return finalDrain(r)
		case <-time.After(dtSave):
		}
	}
}

// drainCycle checks how large the backlog has grown since the last
// cycle, opens the sink, drains every currently queued measurement to
// it via r.Save, and closes the sink.
func drainCycle(r *recording.Recording, crossed []bool) error {
	checkThresholds(r, crossed)

	if err := r.Open(); err != nil {
		return fmt.Errorf("writer %s: open sink: %w", r.Name(), err)
	}
	defer func() {
		if err := r.CloseSink(); err != nil {
			Logf("writer %s: close sink: %v", r.Name(), err)
		}
	}()

	for _, m := range r.SaveQueue().DrainAll() {
		if err := r.Save(m); err != nil {
			Logf("writer %s: save error, dropping measurement: %v", r.Name(), err)
		}
	}
	return nil
}

// checkThresholds emits one-shot warning/recovery log lines as the
// save queue's backlog crosses each configured threshold.
func checkThresholds(r *recording.Recording, crossed []bool) {
	size := r.SaveQueue().Size()
	for i, threshold := range thresholds {
		if size >= threshold && !crossed[i] {
			crossed[i] = true
			Logf("writer %s: save queue backlog reached %d", r.Name(), threshold)
		} else if size < threshold && crossed[i] {
			crossed[i] = false
			Logf("writer %s: save queue backlog recovered below %d", r.Name(), threshold)
		}
	}
}

// finalDrain performs the lossless shutdown drain described in
// spec.md §4.4: open the sink once more, write every remaining
// measurement with a progress indicator, then close.
func finalDrain(r *recording.Recording) error {
	if err := r.Open(); err != nil {
		return fmt.Errorf("writer %s: final drain open: %w", r.Name(), err)
	}
	defer func() {
		if err := r.CloseSink(); err != nil {
			Logf("writer %s: final drain close: %v", r.Name(), err)
		}
	}()

	pending := r.SaveQueue().DrainAll()
	total := len(pending)
	for i, m := range pending {
		if err := r.Save(m); err != nil {
			Logf("writer %s: save error during final drain, dropping measurement: %v", r.Name(), err)
			continue
		}
		if total > 0 && (i+1)%100 == 0 {
			Logf("writer %s: final drain %d/%d", r.Name(), i+1, total)
		}
	}
	if total > 0 {
		Logf("writer %s: final drain complete, %d measurements written", r.Name(), total)
	}
	return nil
}
