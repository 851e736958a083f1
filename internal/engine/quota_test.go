package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickQuota_WithinLimit(t *testing.T) {
	q := NewTickQuota(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check(), "tick %d should be allowed", i+1)
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxTicks())

	err := q.Check()
	var te *TicksExceededError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 4, te.Ticks)
	assert.Equal(t, 3, te.Limit)
}

func TestTickQuota_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxTicks, NewTickQuota(0).MaxTicks())
	assert.Equal(t, DefaultMaxTicks, NewTickQuota(-1).MaxTicks())
}

func TestIsTicksExceededError(t *testing.T) {
	err := &TicksExceededError{Ticks: 11, Limit: 10}
	assert.True(t, IsTicksExceededError(err))
	assert.True(t, IsTicksExceededError(fmt.Errorf("drain: %w", err)))
	assert.False(t, IsTicksExceededError(fmt.Errorf("other")))
	assert.Contains(t, err.Error(), "11 ticks > 10 limit")
}

func TestLoop_DrainWithinSettles(t *testing.T) {
	l := NewLoop()
	var got []string
	w := NewWatcher(l, func() {
		got = append(got, "watch")
		l.Post(func() { got = append(got, "job") })
	})
	w.Update()

	n, err := l.DrainWithin(10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"watch", "job"}, got)
}

func TestLoop_DrainWithinIdle(t *testing.T) {
	n, err := NewLoop().DrainWithin(1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoop_DrainWithinStopsRecursiveUpdate(t *testing.T) {
	l := NewLoop()
	runs := 0
	var w *Watcher
	w = NewWatcher(l, func() {
		runs++
		// A job that re-queues the watcher puts it on the next tick.
		l.Post(w.Update)
	})
	w.Update()

	n, err := l.DrainWithin(5)
	require.Error(t, err)
	assert.True(t, IsTicksExceededError(err))
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, runs)
	assert.Positive(t, l.Len(), "the pending run stays queued")

	w.Teardown()
	l.Drain()
}
