package component

import (
	"fmt"
	"log/slog"

	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/patch"
)

// State is the lifecycle state of an instance.
type State int

const (
	StateInitial State = iota
	StateCreated
	StateMounted
	StateDestroyed
	// StateBroken is terminal and reachable only from construction.
	StateBroken
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateCreated:
		return "created"
	case StateMounted:
		return "mounted"
	case StateDestroyed:
		return "destroyed"
	case StateBroken:
		return "broken"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Instance is the runtime state of one component bound to one host.
//
// All methods must be called from the loop goroutine (or before the loop
// starts running). Host completion callbacks are the only exception; they
// post back onto the loop.
type Instance struct {
	reg    *Registry
	uid    int64
	opts   Options
	host   any
	caps   capabilities
	logger *slog.Logger

	state     State
	brokenErr error

	data      ir.IRObject
	localKeys patch.KeySet
	differ    *patch.Differ
	override  patch.Override
	sched     *engine.Scheduler

	renderWatcher *engine.Watcher
	watchers      []*engine.Watcher
}

func (in *Instance) init() {
	mode := patch.ModeLoose
	if in.reg.cfg.StrictDiff {
		mode = patch.ModeStrict
	}
	in.localKeys = patch.NewKeySet()
	in.differ = patch.NewDiffer(mode, in.localKeys)
	in.differ.Comparator = in.reg.comparator
	in.sched = engine.NewScheduler(in.reg.loop, in.requestRender)
}

// UID returns the instance's unique id.
func (in *Instance) UID() int64 { return in.uid }

// Name returns the component name.
func (in *Instance) Name() string { return in.opts.Name }

// Host returns the host the instance is bound to.
func (in *Instance) Host() any { return in.host }

// State returns the lifecycle state.
func (in *Instance) State() State { return in.state }

// Err returns the configuration error of a broken instance, or nil.
func (in *Instance) Err() error { return in.brokenErr }

// IsMounted reports whether the instance is mounted.
func (in *Instance) IsMounted() bool { return in.state == StateMounted }

// Created runs the created transition: hooks, data initialization, and
// either the first render or, in native-render mode, a forced full render.
func (in *Instance) Created(args ...any) error {
	if err := in.transition(StateInitial, "created"); err != nil {
		return err
	}
	in.callHook(in.opts.Hooks.BeforeCreate)
	in.initState()
	in.state = StateCreated
	in.journal(EventCreated, "")
	if h := in.opts.Hooks.Created; h != nil {
		h(in.host, args...)
	}

	if in.opts.NativeRender {
		in.flush(nil)
	} else {
		in.initRender()
	}
	return nil
}

// Mounted runs the mounted transition and resolves the render task created
// before mount.
func (in *Instance) Mounted() error {
	if err := in.transition(StateCreated, "mounted"); err != nil {
		return err
	}
	in.state = StateMounted
	in.journal(EventMounted, "")
	in.callHook(in.opts.Hooks.BeforeMount)
	in.callHook(in.opts.Hooks.Mounted)
	in.sched.Mount()
	return nil
}

// Destroyed tears down every watcher and runs the destroyed hook. A flush
// still in flight completes, but its updated hook is suppressed.
func (in *Instance) Destroyed() error {
	if in.state == StateBroken {
		return in.brokenError()
	}
	if in.state == StateDestroyed {
		return fmt.Errorf("%w: destroyed from %s", ErrInvalidTransition, in.state)
	}
	in.state = StateDestroyed
	in.clearWatchers()
	in.sched.Reset()
	in.journal(EventDestroyed, "")
	in.callHook(in.opts.Hooks.Destroyed)
	return nil
}

func (in *Instance) transition(from State, name string) error {
	if in.state == StateBroken {
		return in.brokenError()
	}
	if in.state != from {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, name, in.state)
	}
	return nil
}

func (in *Instance) brokenError() error {
	return fmt.Errorf("%w: %w", ErrBroken, in.brokenErr)
}

// usable gates the instance API.
func (in *Instance) usable() error {
	switch in.state {
	case StateBroken:
		return in.brokenError()
	case StateInitial:
		return ErrNotCreated
	case StateDestroyed:
		return ErrDestroyed
	}
	return nil
}

// updated queues the updated hook through the async lock. The mounted
// state is checked again when the hook actually runs.
func (in *Instance) updated() {
	if !in.IsMounted() {
		return
	}
	in.sched.Locked(func() {
		if !in.IsMounted() {
			return
		}
		in.journal(EventUpdated, "")
		in.callHook(in.opts.Hooks.Updated)
	})
}

func (in *Instance) callHook(h func(host any)) {
	if h != nil {
		h(in.host)
	}
}

func (in *Instance) clearWatchers() {
	for i := len(in.watchers) - 1; i >= 0; i-- {
		in.watchers[i].Teardown()
	}
	if in.renderWatcher != nil {
		in.renderWatcher.Teardown()
	}
}

func (in *Instance) newError(code Code, msg, path string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   msg,
		Component: in.opts.Name,
		Resource:  in.opts.Resource,
		Path:      path,
		Err:       cause,
	}
}

func (in *Instance) report(code Code, msg, path string, cause error) {
	in.reg.reporter.Report(in.newError(code, msg, path, cause))
}

func (in *Instance) journal(kind EventKind, flushID string) {
	in.reg.recordEvent(Event{
		Seq:       in.reg.seq.Next(),
		Component: in.opts.Name,
		UID:       in.uid,
		Kind:      kind,
		FlushID:   flushID,
	})
}
