package engine

import "sync/atomic"

// Clock is the logical clock stamping deliveries and observations.
//
// Sequence numbers strictly increase. Ordering never depends on wall
// time, so two runs over the same observations stamp the same numbers.
//
// Clock is safe for concurrent use, although the propagator only calls
// Next with its mutex held.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. Used when a network is
// reloaded from a store and numbering must continue after the last
// recorded reaction.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
