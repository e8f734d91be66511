package engine

import "sync/atomic"

// Clock counts Update calls. Trace events are stamped with the tick so
// recorded runs compare without wall-clock noise.
//
// Thread-safety: Clock is safe for concurrent use so a CLI can report
// progress from another goroutine; only the update loop advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
