package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

// Job is a unit of deferred work run on the loop goroutine.
type Job func()

// Loop is the single shared cooperative queue. All component state is
// mutated from jobs and watchers run by the loop, so no instance ever sees
// parallel execution.
//
// A tick runs every queued watcher in id order (creation order), then drains
// the job FIFO, including jobs posted while draining. Watchers queued by
// those jobs run on the next tick. This is what guarantees that a
// continuation registered in the same tick as a data change observes the
// render task created by that change.
//
// Thread-safety model:
//   - Post(), QueueWatcher(), Close(): safe from any goroutine
//   - Tick(), Drain(), Run(): must be called from exactly one goroutine
type Loop struct {
	mu       sync.Mutex
	jobs     []Job
	watchers map[int64]*Watcher
	closed   bool
	signal   chan struct{} // Signals work availability (buffered, size 1)
	ids      *Clock
	logger   *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLogger sets the logger used for job panics. Default: slog.Default().
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		jobs:     make([]Job, 0, 64),
		watchers: make(map[int64]*Watcher),
		signal:   make(chan struct{}, 1),
		ids:      NewClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post appends a job to the back of the queue.
// Returns false if the loop has been closed.
func (l *Loop) Post(job Job) bool {
	if job == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.jobs = append(l.jobs, job)
	l.notify()
	return true
}

// QueueWatcher schedules w for the next tick. A watcher already queued is
// not queued twice, so repeated updates within a tick coalesce into one run.
func (l *Loop) QueueWatcher(w *Watcher) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	if _, queued := l.watchers[w.id]; !queued {
		l.watchers[w.id] = w
		l.notify()
	}
	return true
}

// notify signals availability without blocking. Caller holds mu.
func (l *Loop) notify() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Tick runs one round: queued watchers, then all jobs.
// Reports whether anything ran.
func (l *Loop) Tick() bool {
	ran := false

	l.mu.Lock()
	queued := make([]*Watcher, 0, len(l.watchers))
	for _, w := range l.watchers {
		queued = append(queued, w)
	}
	clear(l.watchers)
	l.mu.Unlock()

	slices.SortFunc(queued, func(a, b *Watcher) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	for _, w := range queued {
		l.safely("watcher", w.Run)
		ran = true
	}

	for {
		job, ok := l.tryDequeue()
		if !ok {
			break
		}
		l.safely("job", job)
		ran = true
	}
	return ran
}

// Drain runs ticks until the loop is idle and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for l.Tick() {
		n++
	}
	return n
}

// tryDequeue removes and returns the front job without blocking.
func (l *Loop) tryDequeue() (Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.jobs) == 0 {
		return nil, false
	}
	job := l.jobs[0]
	// Nil out the slot so the closure can be collected.
	l.jobs[0] = nil
	if len(l.jobs) == 1 {
		l.jobs = l.jobs[:0]
	} else {
		l.jobs = l.jobs[1:]
	}
	return job, true
}

// safely runs fn, logging instead of propagating a panic. One misbehaving
// hook or callback must not take down every other component on the loop.
func (l *Loop) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop "+kind+" panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Len returns the number of pending jobs and queued watchers.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.jobs) + len(l.watchers)
}

// Wait returns a channel that signals when work may be available.
// The channel is closed when the loop is closed.
func (l *Loop) Wait() <-chan struct{} {
	return l.signal
}

// Close stops accepting work and wakes any waiter.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// NextID returns a fresh watcher id. Ids increase in creation order.
func (l *Loop) NextID() int64 {
	return l.ids.Next()
}

// Run drives the loop until ctx is cancelled or the loop is closed and idle.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")

	for {
		if l.Tick() {
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.Close()
			return ctx.Err()

		case <-l.Wait():
			// The signal channel is closed on Close, which makes this case
			// fire immediately; stop once nothing is left to run.
			if l.Closed() && l.Len() == 0 {
				l.logger.Debug("loop stopping: closed")
				return nil
			}
		}
	}
}
