package engine

import "sync"

// AsyncLock serializes work items on the loop. Items run one at a time in
// submission order, each in its own job, and an item submitted while
// another is pending waits its turn instead of being dropped.
type AsyncLock struct {
	loop *Loop

	mu      sync.Mutex
	running bool
	queue   []func()
}

// NewAsyncLock creates a lock whose items run on loop.
func NewAsyncLock(loop *Loop) *AsyncLock {
	return &AsyncLock{loop: loop}
}

// Do submits fn. It never runs fn synchronously.
func (l *AsyncLock) Do(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	start := !l.running
	l.running = true
	l.mu.Unlock()

	if start {
		l.loop.Post(l.next)
	}
}

// Pending returns the number of submitted items that have not run.
func (l *AsyncLock) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *AsyncLock) next() {
	l.mu.Lock()
	if len(l.queue) == 0 {
		l.running = false
		l.mu.Unlock()
		return
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.mu.Unlock()

	// Chain the next item even if fn panics; the loop recovers the panic.
	defer l.loop.Post(l.next)
	fn()
}
