package component

import (
	"fmt"
	"slices"

	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
)

// Data returns a deep copy of the instance data.
func (in *Instance) Data() ir.IRObject {
	return ir.CloneObject(in.data)
}

// LocalKeys returns the sorted keys eligible for patching.
func (in *Instance) LocalKeys() []string {
	if in.localKeys == nil {
		return nil
	}
	return in.localKeys.Sorted()
}

// Get returns the value at path in the data, computed values included.
func (in *Instance) Get(path string) (ir.IRValue, bool) {
	if in.data == nil {
		return nil, false
	}
	p, err := ir.ParsePath(path)
	if err != nil {
		return nil, false
	}
	return ir.GetByPath(in.snapshot(), p)
}

// Set writes v at path and notifies every live watcher. The render
// watcher coalesces all writes of one tick into a single flush.
func (in *Instance) Set(path string, v ir.IRValue) error {
	if err := in.usable(); err != nil {
		return err
	}
	p, err := ir.ParsePath(path)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	ir.SetByPath(in.data, p, v)
	in.notify()
	return nil
}

// notify queues every live watcher. There is no dependency tracking, so
// user watchers compare values themselves.
func (in *Instance) notify() {
	for _, w := range in.watchers {
		w.Update()
	}
	if in.renderWatcher != nil {
		in.renderWatcher.Update()
	}
}

// Watch calls cb with the new and previous value whenever the value at
// path changes. The returned function stops watching.
func (in *Instance) Watch(path string, cb func(newVal, oldVal ir.IRValue)) (func(), error) {
	if err := in.usable(); err != nil {
		return nil, err
	}
	return in.watch(path, cb)
}

func (in *Instance) watch(path string, cb func(newVal, oldVal ir.IRValue)) (func(), error) {
	p, err := ir.ParsePath(path)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	read := func() ir.IRValue {
		v, _ := ir.GetByPath(in.snapshot(), p)
		return ir.Clone(v)
	}
	last := read()
	w := engine.NewWatcher(in.reg.loop, func() {
		next := read()
		if ir.Equal(next, last) {
			return
		}
		prev := last
		last = next
		cb(next, prev)
	})
	in.watchers = append(in.watchers, w)

	return func() {
		w.Teardown()
		if i := slices.Index(in.watchers, w); i >= 0 {
			in.watchers = slices.Delete(in.watchers, i, i+1)
		}
	}, nil
}

// NextTick runs fn after the flush pending at the time it runs, or on the
// next tick when no flush is pending.
func (in *Instance) NextTick(fn func()) error {
	if err := in.usable(); err != nil {
		return err
	}
	in.sched.NextTick(fn)
	return nil
}

// ForceUpdate writes data into the instance immediately and into the
// override buffer, which wins over the next computed patch. Either argument
// may be nil; cb runs after the next flush completes. A render is always
// requested.
func (in *Instance) ForceUpdate(data ir.IRObject, cb func()) error {
	if err := in.usable(); err != nil {
		return err
	}

	if len(data) > 0 {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		forced := make(ir.IRObject, len(data))
		for _, key := range keys {
			v := ir.Clone(data[key])
			forced[key] = v

			p, err := ir.ParsePath(key)
			if err != nil {
				in.report(CodeInvalidPath, "force update key is not a valid path", key, err)
				continue
			}
			if !in.opts.NativeRender && !in.localKeys.Covers(p) {
				in.report(CodeForceOverrideKey,
					fmt.Sprintf("force update data includes a props/computed key [%s], which may yield an unexpected result", key),
					key, nil)
			}
			ir.SetByPath(in.data, p, ir.Clone(v))
		}
		in.override.Merge(forced)
		for _, w := range in.watchers {
			w.Update()
		}
	}

	if cb != nil {
		in.sched.NextTick(cb)
	}
	in.requestRender()
	return nil
}

// Flush renders now instead of on the next tick. cb runs after host
// completion, or synchronously when there was nothing to send.
func (in *Instance) Flush(cb func()) error {
	if err := in.usable(); err != nil {
		return err
	}
	in.flush(cb)
	return nil
}

// Pending returns the current render task, or nil.
func (in *Instance) Pending() *engine.RenderTask {
	if in.sched == nil {
		return nil
	}
	return in.sched.Task()
}
