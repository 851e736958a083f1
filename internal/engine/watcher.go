package engine

import "sync/atomic"

// Watcher is a unit of reactive work. Update queues it on the loop; the
// loop runs it at most once per tick no matter how many updates arrived.
//
// The render watcher of a component and its user watchers are all Watchers.
// Ids come from the loop, so a component's user watchers (created first)
// always run before its render watcher within a tick.
type Watcher struct {
	id     int64
	loop   *Loop
	fn     func()
	active atomic.Bool
}

// NewWatcher creates an active watcher bound to loop.
func NewWatcher(loop *Loop, fn func()) *Watcher {
	w := &Watcher{
		id:   loop.NextID(),
		loop: loop,
		fn:   fn,
	}
	w.active.Store(true)
	return w
}

// ID returns the watcher id.
func (w *Watcher) ID() int64 { return w.id }

// Active reports whether the watcher has not been torn down.
func (w *Watcher) Active() bool { return w.active.Load() }

// Update queues the watcher for the next tick.
func (w *Watcher) Update() {
	if !w.active.Load() {
		return
	}
	w.loop.QueueWatcher(w)
}

// Run executes the watcher synchronously if it is still active.
func (w *Watcher) Run() {
	if !w.active.Load() {
		return
	}
	w.fn()
}

// Teardown deactivates the watcher. A queued run becomes a no-op.
func (w *Watcher) Teardown() {
	w.active.Store(false)
}
