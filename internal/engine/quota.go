package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxTicks bounds a single drain. A watcher that keeps changing the
// data it watches re-queues itself every tick and would otherwise never let
// the loop go idle.
const DefaultMaxTicks = 1000

// TickQuota counts the ticks of one drain and enforces a maximum.
//
// Ordinary update chains settle within a handful of ticks: a data change
// queues the render watcher, the render posts a host call, the completion
// runs as a job. Only a self-sustaining update cycle reaches the limit.
type TickQuota struct {
	maxTicks int
	current  int
}

// NewTickQuota creates a quota allowing maxTicks ticks. A non-positive
// maxTicks means DefaultMaxTicks.
func NewTickQuota(maxTicks int) *TickQuota {
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	return &TickQuota{maxTicks: maxTicks}
}

// Check counts one tick and returns a TicksExceededError once the limit
// is passed.
func (q *TickQuota) Check() error {
	q.current++
	if q.current > q.maxTicks {
		return &TicksExceededError{Ticks: q.current, Limit: q.maxTicks}
	}
	return nil
}

// Current returns the number of ticks counted so far.
func (q *TickQuota) Current() int {
	return q.current
}

// MaxTicks returns the limit.
func (q *TickQuota) MaxTicks() int {
	return q.maxTicks
}

// TicksExceededError is returned when a drain does not go idle within its
// quota. Work still queued stays queued.
type TicksExceededError struct {
	Ticks int
	Limit int
}

// Error implements the error interface.
func (e *TicksExceededError) Error() string {
	return fmt.Sprintf("loop did not settle: %d ticks > %d limit (recursive update?)", e.Ticks, e.Limit)
}

// IsTicksExceededError reports whether err wraps a TicksExceededError.
func IsTicksExceededError(err error) bool {
	var te *TicksExceededError
	return errors.As(err, &te)
}

// DrainWithin runs ticks until the loop is idle, like Drain, but gives up
// with a TicksExceededError after maxTicks ticks. It returns the number of
// ticks that ran.
func (l *Loop) DrainWithin(maxTicks int) (int, error) {
	quota := NewTickQuota(maxTicks)
	n := 0
	for {
		if l.Len() == 0 {
			return n, nil
		}
		if err := quota.Check(); err != nil {
			l.logger.Warn("drain stopped", "ticks", n, "limit", quota.MaxTicks(), "pending", l.Len())
			return n, err
		}
		if !l.Tick() {
			return n, nil
		}
		n++
	}
}
