package backend

import "time"

// Clock provides deterministic time to guest code, following the
// teacher's libc time stub pattern (a fixed epoch apps observe instead of
// wall-clock time, so runs are reproducible). Unlike the teacher's
// package-level MockTimeSec var, this is instance state so multiple
// Backends in the same process (tests, multi-app hosting) don't share a
// clock.
type Clock struct {
	base time.Time
	now  time.Time
}

// NewClock starts a clock at a fixed epoch, matching the teacher's
// MockTimeSec default of 2024-01-01 00:00:00 UTC.
func NewClock() *Clock {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Clock{base: epoch, now: epoch}
}

// NowMillis returns milliseconds since the clock's epoch.
func (c *Clock) NowMillis() uint32 {
	return uint32(c.now.Sub(c.base).Milliseconds())
}

// Advance moves the clock forward by d. Nothing advances it on its own:
// the clock reads the epoch until Advance or Set moves it.
func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set pins the clock to an absolute instant, for tests that need a known
// reading.
func (c *Clock) Set(t time.Time) {
	c.now = t
}
