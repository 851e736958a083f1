package engine

import "sync/atomic"

// Clock hands out strictly increasing int64 values starting after its
// initial value. Component uids, watcher ids and journal seqs all come
// from Clocks, so sorting by them reproduces creation order.
//
// The zero value is ready to use. Safe for concurrent use.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a clock whose first value is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first value is start+1, for resuming
// after the highest value already journaled.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.last.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
