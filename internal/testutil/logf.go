package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// CapturingLogf is a test double for the Logf-shaped loggers used
// throughout this module (reader, writer, control, hub), following the
// teacher's internal/monitoring.Logf pattern of a replaceable
// package-level logging function.
type CapturingLogf struct {
	mu    sync.Mutex
	lines []string
}

// Logf records a formatted line. Safe for concurrent use.
func (c *CapturingLogf) Logf(format string, v ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, v...))
}

// Lines returns a snapshot of all recorded lines.
func (c *CapturingLogf) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Contains reports whether any recorded line contains substr.
func (c *CapturingLogf) Contains(substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
