// Package testutil provides in-memory hosts for exercising component
// instances without a real renderer.
package testutil

import (
	"sync"

	"github.com/roach88/rendersync/internal/ir"
)

// RenderCall is one patch received by a FakeHost.
type RenderCall struct {
	Patch     ir.IRObject
	Completed bool
}

// FakeHost records every patch it is asked to render and applies it to
// its own view. Completions are released explicitly by the test unless
// AutoComplete is set.
//
// Thread-safety: safe for concurrent use; completions may be released from
// any goroutine.
type FakeHost struct {
	mu sync.Mutex

	initial      ir.IRObject
	view         ir.IRObject
	autoComplete bool
	calls        []*RenderCall
	pending      []pendingCall
}

type pendingCall struct {
	call       *RenderCall
	onComplete func()
}

// NewFakeHost creates a host whose initial data and view are copies of
// initial.
func NewFakeHost(initial ir.IRObject) *FakeHost {
	if initial == nil {
		initial = ir.IRObject{}
	}
	return &FakeHost{
		initial: ir.CloneObject(initial),
		view:    ir.CloneObject(initial),
	}
}

// SetAutoComplete makes Render complete synchronously.
func (h *FakeHost) SetAutoComplete(on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoComplete = on
}

// InitialData implements component.InitialDataProvider.
func (h *FakeHost) InitialData() ir.IRObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ir.CloneObject(h.initial)
}

// NativeData implements component.NativeDataProvider.
func (h *FakeHost) NativeData() ir.IRObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ir.CloneObject(h.view)
}

// Render implements component.Renderer.
func (h *FakeHost) Render(patch ir.IRObject, onComplete func()) {
	h.mu.Lock()
	call := &RenderCall{Patch: ir.CloneObject(patch)}
	h.calls = append(h.calls, call)
	h.apply(patch)
	auto := h.autoComplete
	if !auto {
		h.pending = append(h.pending, pendingCall{call: call, onComplete: onComplete})
	} else {
		call.Completed = true
	}
	h.mu.Unlock()

	if auto && onComplete != nil {
		onComplete()
	}
}

// apply writes patch into the view. Caller holds mu.
func (h *FakeHost) apply(patch ir.IRObject) {
	for key, v := range patch {
		p, err := ir.ParsePath(key)
		if err != nil {
			continue
		}
		ir.SetByPath(h.view, p, ir.Clone(v))
	}
}

// Calls returns a snapshot of every render call in arrival order.
func (h *FakeHost) Calls() []RenderCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RenderCall, len(h.calls))
	for i, c := range h.calls {
		out[i] = *c
	}
	return out
}

// CallCount returns the number of render calls so far.
func (h *FakeHost) CallCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// LastPatch returns the most recent patch, or nil.
func (h *FakeHost) LastPatch() ir.IRObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return nil
	}
	return h.calls[len(h.calls)-1].Patch
}

// Pending returns the number of render calls not yet completed.
func (h *FakeHost) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

// Complete releases the oldest pending render call. Reports whether one
// was pending.
func (h *FakeHost) Complete() bool {
	h.mu.Lock()
	if len(h.pending) == 0 {
		h.mu.Unlock()
		return false
	}
	p := h.pending[0]
	h.pending = h.pending[1:]
	p.call.Completed = true
	h.mu.Unlock()

	if p.onComplete != nil {
		p.onComplete()
	}
	return true
}

// CompleteAll releases every pending render call and returns how many.
func (h *FakeHost) CompleteAll() int {
	n := 0
	for h.Complete() {
		n++
	}
	return n
}

// InjectedHost is a FakeHost that also exposes a render function.
type InjectedHost struct {
	*FakeHost
	Fn func() (ir.IRObject, error)
}

// InjectedRender implements component.InjectedRenderer.
func (h *InjectedHost) InjectedRender() (ir.IRObject, error) {
	return h.Fn()
}

// RenderOnlyHost implements Render but not InitialData, so instances bound
// to it are broken.
type RenderOnlyHost struct{}

// Render implements component.Renderer.
func (RenderOnlyHost) Render(ir.IRObject, func()) {}
