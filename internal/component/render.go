package component

import (
	"fmt"

	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/patch"
)

// initRender creates the render watcher and runs it once, so the first
// flush happens during Created.
func (in *Instance) initRender() {
	in.renderWatcher = engine.NewWatcher(in.reg.loop, func() { in.flush(nil) })
	in.renderWatcher.Run()
}

// requestRender asks for a flush on the next tick, or performs it now when
// the instance has no render watcher (native-render mode).
func (in *Instance) requestRender() {
	if in.renderWatcher != nil {
		in.renderWatcher.Update()
		return
	}
	in.flush(nil)
}

// flush computes the patch for the current data and hands it to the host.
// cb runs after host completion, or synchronously if nothing was sent.
func (in *Instance) flush(cb func()) {
	if in.state != StateCreated && in.state != StateMounted {
		return
	}
	if !in.sched.Admit(in.IsMounted()) {
		in.logger.Debug("render absorbed into pending task")
		if cb != nil {
			in.sched.NextTick(cb)
		}
		return
	}

	var out ir.IRObject
	switch {
	case in.opts.NativeRender:
		out = in.snapshot()
	case in.caps.injected != nil:
		out = in.renderInjected()
	default:
		out = in.diff(in.snapshot())
	}
	in.doRender(out, cb)
}

// renderInjected diffs the render data collected by the host's render
// function. A failure degrades this flush to a full render.
func (in *Instance) renderInjected() ir.IRObject {
	collected, err := in.callInjected()
	if err != nil {
		if !in.reg.cfg.IgnoreRenderError {
			in.report(CodeRenderFunction,
				"failed to execute render function, degrade to full-set-data mode", "", err)
		}
		return in.diff(in.snapshot())
	}
	return in.diff(patch.Preprocess(collected))
}

func (in *Instance) callInjected() (out ir.IRObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render function panicked: %v", r)
		}
	}()
	return in.caps.injected.InjectedRender()
}

func (in *Instance) diff(renderData ir.IRObject) ir.IRObject {
	out, err := in.differ.Diff(renderData, in.baseline())
	if err != nil {
		in.report(CodeInvalidPath, "render data has keys that are not valid paths", "", err)
	}
	return out
}

// doRender delivers data merged with the override buffer. Before mount the
// completion only runs cb; after mount it also queues the updated hook and
// resolves the render task.
func (in *Instance) doRender(data ir.IRObject, cb func()) {
	mounted := in.IsMounted()
	empty := len(data) == 0 && in.override.Empty()
	resolve := in.sched.Begin(mounted, empty)

	if empty {
		if cb != nil {
			cb()
		}
		return
	}

	if over := in.override.Take(); len(over) > 0 {
		data = patch.Merge(data, over)
		if !in.opts.NativeRender {
			in.differ.Record(over)
		}
	}
	data = ir.NormalizeObject(data)

	id := in.reg.ids.Generate()
	in.reg.recordFlush(Flush{
		ID:        id,
		Seq:       in.reg.seq.Next(),
		Component: in.opts.Name,
		UID:       in.uid,
		Mounted:   mounted,
		Patch:     data,
	})
	in.logger.Debug("flush", "flush", id, "paths", len(data), "mounted", mounted)

	onComplete := in.sched.Track(func() {
		in.journal(EventComplete, id)
		if mounted {
			in.updated()
		}
		if cb != nil {
			cb()
		}
		if resolve != nil {
			resolve()
		}
	})
	in.caps.renderer.Render(data, onComplete)
}
