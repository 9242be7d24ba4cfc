package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable clock for tests.
//
// Unlike clock.System, FixedClock only moves when told to, so timestamps,
// token expiry and session lifetimes are reproducible across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// DefaultTime is the instant a FixedClock starts at when created with
// NewFixedClock(time.Time{}).
var DefaultTime = time.Date(2025, time.October, 4, 12, 0, 0, 0, time.UTC)

// NewFixedClock creates a clock frozen at start, or at DefaultTime when start
// is zero.
func NewFixedClock(start time.Time) *FixedClock {
	if start.IsZero() {
		start = DefaultTime
	}
	return &FixedClock{now: start}
}

// Now returns the frozen time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
