package engine

import "sync"

// RenderTask is the completion handle for one render cycle.
//
// It starts pending and resolves exactly once. Continuations registered
// with Then run on the loop after resolution, in registration order.
type RenderTask struct {
	loop *Loop

	mu       sync.Mutex
	resolved bool
	waiters  []func()
	done     chan struct{}
}

// NewRenderTask creates a pending task whose continuations run on loop.
func NewRenderTask(loop *Loop) *RenderTask {
	return &RenderTask{
		loop: loop,
		done: make(chan struct{}),
	}
}

// Then registers fn to run after the task resolves. On an already resolved
// task fn is posted immediately; it never runs synchronously.
func (t *RenderTask) Then(fn func()) {
	t.mu.Lock()
	if !t.resolved {
		t.waiters = append(t.waiters, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.loop.Post(fn)
}

// Resolve marks the task complete and schedules its continuations.
// Returns false if the task was already resolved.
func (t *RenderTask) Resolve() bool {
	t.mu.Lock()
	if t.resolved {
		t.mu.Unlock()
		return false
	}
	t.resolved = true
	waiters := t.waiters
	t.waiters = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range waiters {
		t.loop.Post(fn)
	}
	return true
}

// Resolved reports whether Resolve has been called.
func (t *RenderTask) Resolved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolved
}

// Done returns a channel closed on resolution.
func (t *RenderTask) Done() <-chan struct{} {
	return t.done
}
