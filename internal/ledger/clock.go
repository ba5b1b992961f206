package ledger

import (
	"sync"
	"time"
)

// Clock supplies wall time to the ledger. Injected so that elapsed-minute
// stamping is deterministic in tests.
//
// Implemented by WallClock (production) and ManualClock (tests).
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock.
type WallClock struct{}

// Now returns the current system time.
func (WallClock) Now() time.Time { return time.Now() }

// ManualClock is a settable clock for deterministic tests and scripted
// encounters. The zero value is not usable; construct with NewManualClock.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock creates a manual clock pinned at t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{t: t}
}

// Now returns the pinned time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set pins the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// elapsedMinutes computes whole minutes between start and now.
// Always a read-time derivation, never a stored counter.
func elapsedMinutes(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
