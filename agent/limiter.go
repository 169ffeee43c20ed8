package agent

import (
	"fmt"
	"sync"
)

// CallLimiter enforces a maximum number of allowed operations per run. It
// guards both strategy iterations (loop bound) and model calls.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a limiter with a max number of operations.
// If max == 0, unlimited operations are allowed.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Increment increases the counter and returns an error once the limit is
// exceeded.
func (l *CallLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max operations: %d", l.max)
	}

	return nil
}

// Count returns the current number of operations recorded.
func (l *CallLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many operations are left before hitting the limit,
// or -1 for unlimited.
func (l *CallLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1
	}

	return l.max - l.count
}
