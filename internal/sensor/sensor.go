// Package sensor defines the Sensor capability contract described in
// spec.md §6: a stable name, a read operation that distinguishes
// success from a recoverable failure, and optional scoped open/close.
// The core never inspects a successful Reading's payload; only a
// Recording's formatter interprets it.
package sensor

import (
	"context"
	"errors"
)

// ErrReadFailed wraps every sensor read failure. It is the
// "recoverable, expected condition" of spec.md §4.3's failure
// taxonomy: readers retry on the next tick rather than terminate.
// Wrap it with fmt.Errorf("%w: ...", ErrReadFailed, ...) so callers can
// test with errors.Is(err, ErrReadFailed).
var ErrReadFailed = errors.New("sensor read failed")

// Reading is the opaque payload a Sensor.Read returns on success.
type Reading struct {
	Values []float64
	Image  []byte
}

// Sensor is the capability set a Recording binds to.
type Sensor interface {
	// Name returns the sensor's stable identifier.
	Name() string
	// Open acquires any resources (serial port, camera handle, ...)
	// needed before the first Read. Readers call Open once at loop
	// entry and Close once at loop exit (spec.md §3 Lifecycle).
	Open(ctx context.Context) error
	// Close releases resources acquired by Open.
	Close() error
	// Read performs one acquisition. A returned error wrapping
	// ErrReadFailed is a recoverable read failure; any other error is
	// a programmer error and is not expected from a well-behaved
	// Sensor implementation (spec.md §4.3 only taxonomizes Read this
	// way — format/queue errors are taxonomized at the Recording
	// level instead).
	Read(ctx context.Context) (Reading, error)
}
