package sensor

import (
	"context"
	"fmt"
	"sync"
)

// MockSensor is a scripted test/demo Sensor, in the spirit of the
// teacher's MockSerialPort: it replays a fixed sequence of readings
// and can be told to fail at specific read indices.
type MockSensor struct {
	NameStr string
	Values  []Reading
	FailAt  map[int]bool

	mu     sync.Mutex
	idx    int
	opened bool
	closed bool
}

// Name returns the sensor's stable identifier.
func (m *MockSensor) Name() string { return m.NameStr }

// Open marks the mock as opened.
func (m *MockSensor) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

// Close marks the mock as closed.
func (m *MockSensor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Read returns the next scripted reading, or a failure if the current
// index is marked in FailAt.
func (m *MockSensor) Read(ctx context.Context) (Reading, error) {
	m.mu.Lock()
	i := m.idx
	m.idx++
	m.mu.Unlock()

	if m.FailAt[i] {
		return Reading{}, fmt.Errorf("%w: %s: scripted failure at read %d", ErrReadFailed, m.NameStr, i)
	}
	if len(m.Values) == 0 {
		return Reading{}, nil
	}
	return m.Values[i%len(m.Values)], nil
}

// ReadCount reports how many times Read has been called.
func (m *MockSensor) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx
}

// WasOpened reports whether Open was called.
func (m *MockSensor) WasOpened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// WasClosed reports whether Close was called.
func (m *MockSensor) WasClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
