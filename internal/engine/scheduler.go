package engine

import "sync"

// Scheduler tracks the render task of one component instance and the
// host calls made on its behalf.
//
// Rules:
//   - Before mount at most one task exists. It resolves at mount, not at
//     host completion.
//   - Before mount, a render request that arrives while the pending task's
//     host call is still in flight is absorbed. It is replayed once the call
//     completes or at mount, whichever comes first.
//   - After mount every non-empty flush gets a fresh task that resolves when
//     the host reports completion. Empty flushes create no task.
//
// A Scheduler is driven from the loop goroutine only. The completion
// callbacks it hands out are the exception: hosts may invoke them from any
// goroutine, and they post back onto the loop.
type Scheduler struct {
	loop   *Loop
	lock   *AsyncLock
	replay func()

	task     *RenderTask
	inFlight int
	absorbed bool
}

// NewScheduler creates a scheduler on loop. replay is invoked (on the loop)
// to re-request an absorbed render; it may be nil.
func NewScheduler(loop *Loop, replay func()) *Scheduler {
	return &Scheduler{
		loop:   loop,
		lock:   NewAsyncLock(loop),
		replay: replay,
	}
}

// Task returns the most recent render task, or nil if none was created.
func (s *Scheduler) Task() *RenderTask { return s.task }

// InFlight returns the number of host calls not yet completed.
func (s *Scheduler) InFlight() int { return s.inFlight }

// Absorbed reports whether a render request is waiting to be replayed.
func (s *Scheduler) Absorbed() bool { return s.absorbed }

// Admit reports whether a render request may proceed to a host call now.
func (s *Scheduler) Admit(mounted bool) bool {
	if !mounted && s.task != nil && s.inFlight > 0 {
		s.absorbed = true
		return false
	}
	return true
}

// Begin opens a render cycle. It returns the function that resolves the
// new task on host completion, or nil when no task was created or when the
// task is owed to mount instead.
func (s *Scheduler) Begin(mounted, empty bool) (resolve func()) {
	if (!mounted && s.task != nil) || (mounted && empty) {
		return nil
	}
	task := NewRenderTask(s.loop)
	s.task = task
	if !mounted {
		return nil
	}
	return func() { task.Resolve() }
}

// Track registers a host call and returns its completion callback. The
// callback is idempotent and safe from any goroutine; done runs on the loop.
func (s *Scheduler) Track(done func()) (onComplete func()) {
	s.inFlight++
	var once sync.Once
	return func() {
		once.Do(func() {
			s.loop.Post(func() {
				s.inFlight--
				if done != nil {
					done()
				}
				if s.inFlight == 0 {
					s.flushAbsorbed()
				}
			})
		})
	}
}

// Mount resolves the task created before mount and replays an absorbed
// request.
func (s *Scheduler) Mount() {
	if s.task != nil {
		s.task.Resolve()
	}
	s.flushAbsorbed()
}

func (s *Scheduler) flushAbsorbed() {
	if !s.absorbed {
		return
	}
	s.absorbed = false
	if s.replay != nil {
		s.replay()
	}
}

// NextTick defers fn to the next tick's watcher phase, after any render
// watcher queued alongside it. When it runs, fn is chained on the current
// task if there is one and runs immediately otherwise.
func (s *Scheduler) NextTick(fn func()) {
	if fn == nil {
		return
	}
	w := NewWatcher(s.loop, func() {
		if s.task != nil {
			s.task.Then(fn)
			return
		}
		fn()
	})
	w.Update()
}

// Locked runs fn under the instance's async lock.
func (s *Scheduler) Locked(fn func()) {
	s.lock.Do(fn)
}

// Reset drops any absorbed request. Used on destruction.
func (s *Scheduler) Reset() {
	s.absorbed = false
}
