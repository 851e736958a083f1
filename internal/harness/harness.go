package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rendersync/internal/compiler"
	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
	"github.com/roach88/rendersync/internal/testutil"
)

// Harness is the scenario execution engine. It owns one loop, one
// registry, one fake host and one instance, and never starts a goroutine:
// the loop only advances on tick, drain and the synchronous parts of
// lifecycle steps.
type Harness struct {
	ctx     context.Context
	loop    *engine.Loop
	store   *store.Store
	host    *testutil.FakeHost
	inst    *component.Instance
	initial ir.IRObject
	result  *Result
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation. Flush ids
// come from a sequence generator so traces are reproducible. Use RunWith to
// journal into a persistent store.
//
// Execution flow:
// 1. Compile the CUE specs and select the component
// 2. Build the host, registry and instance
// 3. Execute flow steps in order, tracing everything observable
// 4. Evaluate assertions against the trace, view, state and journal
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context for journal writes.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWith(ctx, scenario, Options{})
}

// Options configures a run. The zero value journals into a fresh in-memory
// store with sequential flush ids and numbering from 1.
type Options struct {
	// Store receives the journal. The caller keeps ownership.
	Store *store.Store

	// FlushIDs generates flush ids. Default: "flush-1", "flush-2", ...
	FlushIDs engine.FlushIDGenerator

	// SeqStart and UIDStart resume numbering after an existing journal.
	SeqStart int64
	UIDStart int64

	// Logger receives engine diagnostics. Default: discarded.
	Logger *slog.Logger
}

// RunWith executes a scenario with explicit journal and numbering options.
func RunWith(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	def, err := selectComponent(scenario)
	if err != nil {
		return nil, err
	}
	if verrs := compiler.Validate(def); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return nil, fmt.Errorf("component %s is invalid: %w", def.Name, errors.Join(errs...))
	}

	st := opts.Store
	if st == nil {
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}
	ids := opts.FlushIDs
	if ids == nil {
		ids = engine.NewSequenceGenerator("flush")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	initial, err := ir.ObjectFromGo(scenario.Host.Initial)
	if err != nil {
		return nil, fmt.Errorf("host.initial: %w", err)
	}

	result := NewResult()
	h := &Harness{
		ctx:     ctx,
		loop:    engine.NewLoop(engine.WithLogger(logger)),
		store:   st,
		host:    testutil.NewFakeHost(initial),
		initial: initial,
		result:  result,
		logger:  logger,
	}
	h.host.SetAutoComplete(scenario.Host.AutoComplete)

	hostImpl, err := h.hostFor(scenario.Host)
	if err != nil {
		return nil, err
	}

	reg := component.NewRegistry(scenario.Config, h.loop,
		component.WithRecorder(&traceRecorder{store: st, result: result}),
		component.WithReporter(traceReporter{result: result}),
		component.WithFlushIDs(ids),
		component.WithSeqStart(opts.SeqStart),
		component.WithUIDStart(opts.UIDStart),
		component.WithLogger(logger),
		component.WithContext(ctx),
	)
	h.inst = reg.New(hostImpl, def.Options(h.watchHandler))

	for i, step := range scenario.Flow {
		result.add(TraceEvent{Type: EventStep, Name: step.Op, Path: step.Path})
		err := h.execute(step)
		switch {
		case step.ExpectError && err == nil:
			result.AddError(fmt.Sprintf("flow[%d] %s: expected an error", i, step.Op))
		case !step.ExpectError && err != nil:
			result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, step.Op, err))
		}
		h.logger.Debug("step completed", "step", i, "op", step.Op, "error", err)
	}

	result.View = ir.IRObject{}
	if !scenario.Host.RenderOnly {
		result.View = h.host.NativeData()
	}
	result.Data = h.inst.Data()
	result.State = h.inst.State().String()

	actx := &AssertionContext{
		Store:   st,
		Ctx:     ctx,
		UID:     h.inst.UID(),
		Initial: initial,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// selectComponent compiles the scenario specs and picks the component.
func selectComponent(scenario *Scenario) (*compiler.Definition, error) {
	defs, err := compiler.LoadFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	if scenario.Component == "" {
		if len(defs) != 1 {
			return nil, fmt.Errorf("specs declare %d components; set component", len(defs))
		}
		return defs[0], nil
	}
	for _, def := range defs {
		if def.Name == scenario.Component {
			return def, nil
		}
	}
	return nil, fmt.Errorf("component %q not found in specs", scenario.Component)
}

// hostFor returns the host the instance is bound to.
func (h *Harness) hostFor(spec HostSpec) (any, error) {
	if spec.RenderOnly {
		return testutil.RenderOnlyHost{}, nil
	}
	if spec.Render == nil && spec.RenderError == "" {
		return h.host, nil
	}

	rendered, err := ir.ObjectFromGo(spec.Render)
	if err != nil {
		return nil, fmt.Errorf("host.render: %w", err)
	}
	renderErr := spec.RenderError
	return &testutil.InjectedHost{
		FakeHost: h.host,
		Fn: func() (ir.IRObject, error) {
			if renderErr != "" {
				return nil, errors.New(renderErr)
			}
			return ir.CloneObject(rendered), nil
		},
	}, nil
}

// execute runs one step.
func (h *Harness) execute(step Step) error {
	switch step.Op {
	case OpCreated:
		return h.inst.Created(step.Args...)
	case OpMounted:
		return h.inst.Mounted()
	case OpDestroyed:
		return h.inst.Destroyed()
	case OpSet:
		v, err := ir.FromGo(step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		return h.inst.Set(step.Path, v)
	case OpForce:
		var data ir.IRObject
		if step.Data != nil {
			var err error
			if data, err = ir.ObjectFromGo(step.Data); err != nil {
				return fmt.Errorf("data: %w", err)
			}
		}
		return h.inst.ForceUpdate(data, h.callback(step.Callback))
	case OpNextTick:
		return h.inst.NextTick(h.callback(step.Callback))
	case OpFlush:
		return h.inst.Flush(h.callback(step.Callback))
	case OpTick:
		h.loop.Tick()
		return nil
	case OpDrain:
		_, err := h.loop.DrainWithin(engine.DefaultMaxTicks)
		return err
	case OpComplete:
		return h.complete(step.Count)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// complete releases pending host render calls: one for count 0, all for
// count -1. Completions post onto the loop; a later tick or drain runs them.
func (h *Harness) complete(count int) error {
	if count == 0 {
		count = 1
	}
	released := 0
	for count < 0 || released < count {
		if !h.host.Complete() {
			break
		}
		released++
		h.result.add(TraceEvent{Type: EventComplete})
	}
	if count > 0 && released < count {
		return fmt.Errorf("released %d of %d render calls: none pending", released, count)
	}
	return nil
}

// callback returns a function tracing label when it runs, or nil.
func (h *Harness) callback(label string) func() {
	if label == "" {
		return nil
	}
	return func() {
		h.result.add(TraceEvent{Type: EventCallback, Name: label})
	}
}

func (h *Harness) watchHandler(path string) component.WatchHandler {
	return func(_ any, newVal, _ ir.IRValue) {
		h.result.add(TraceEvent{Type: EventWatch, Name: path, Value: ir.Clone(newVal)})
	}
}

// traceRecorder journals into the store and mirrors every record into
// the trace.
type traceRecorder struct {
	store  *store.Store
	result *Result
}

func (r *traceRecorder) RecordFlush(ctx context.Context, f component.Flush) error {
	r.result.add(TraceEvent{Type: EventRender, FlushID: f.ID, Patch: ir.CloneObject(f.Patch)})
	return r.store.RecordFlush(ctx, f)
}

func (r *traceRecorder) RecordEvent(ctx context.Context, e component.Event) error {
	r.result.add(TraceEvent{Type: EventJournal, Name: string(e.Kind), FlushID: e.FlushID})
	return r.store.RecordEvent(ctx, e)
}

// traceReporter traces every reported error by code.
type traceReporter struct {
	result *Result
}

func (r traceReporter) Report(err *component.Error) {
	r.result.add(TraceEvent{Type: EventReport, Name: string(err.Code), Path: err.Path})
}
