package harness

import (
	"github.com/roach88/rendersync/internal/ir"
)

// Trace event types.
const (
	EventStep     = "step"     // a scenario step ran
	EventRender   = "render"   // a patch was delivered to the host
	EventComplete = "complete" // the harness released a host render call
	EventJournal  = "journal"  // a lifecycle event was journaled
	EventCallback = "callback" // a force/next_tick/flush callback ran
	EventWatch    = "watch"    // a declared watcher fired
	EventReport   = "report"   // an advisory or configuration error was reported
)

// TraceEvent is one entry of a scenario trace.
type TraceEvent struct {
	Type    string      `json:"type"`
	Name    string      `json:"name,omitempty"`
	Path    string      `json:"path,omitempty"`
	FlushID string      `json:"flush_id,omitempty"`
	Patch   ir.IRObject `json:"patch,omitempty"`
	Value   ir.IRValue  `json:"value,omitempty"`
	Seq     int64       `json:"seq"`
}

// Label returns "type" or "type:name", the form used by trace assertions.
func (e TraceEvent) Label() string {
	if e.Name == "" {
		return e.Type
	}
	return e.Type + ":" + e.Name
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step succeeded and all assertions match.
	Pass bool `json:"pass"`

	// Trace contains steps, renders, completions, journal events,
	// callbacks, watcher runs and reports in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// View is the host's view after the last step.
	View ir.IRObject `json:"view"`

	// Data is the instance data after the last step.
	Data ir.IRObject `json:"data"`

	// State is the final lifecycle state.
	State string `json:"state"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// add appends e with the next trace seq.
func (r *Result) add(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
