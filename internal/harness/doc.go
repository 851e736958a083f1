// Package harness runs component scenarios against a fake host.
//
// A scenario compiles CUE component definitions, binds one instance to an
// in-memory host, executes lifecycle and data steps on a loop that only
// advances when told to, and asserts on what happened. Every flush is
// journaled to an in-memory store, so the journal itself can be checked
// against the host view.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: force_override_wins
//	description: "A forced value beats the computed patch of the same flush"
//	specs:
//	  - counter.cue
//	component: Counter
//	config:
//	  strict_diff: false
//	host:
//	  initial: { title: "hello" }
//	  auto_complete: false
//	flow:
//	  - op: created
//	  - op: complete
//	  - op: mounted
//	  - op: force
//	    data: { count: 5 }
//	    callback: forced
//	  - op: set
//	    path: count
//	    value: 7
//	  - op: drain
//	  - op: complete
//	  - op: drain
//	assertions:
//	  - type: last_patch
//	    patch: { count: 5 }
//	  - type: trace_order
//	    events: [render, complete, "callback:forced"]
//
// # Step Operations
//
//   - created, mounted, destroyed: lifecycle transitions
//   - set: write value at path and notify watchers
//   - force: ForceUpdate with data and an optional traced callback
//   - next_tick, flush: continuation and immediate render with a traced callback
//   - tick, drain: advance the loop by one tick or until idle
//   - complete: release count pending render calls (-1 for all)
//
// # Assertion Types
//
//   - trace_contains, trace_order, trace_count: match trace labels such as
//     "render", "journal:updated", "callback:forced", "report:DUPLICATE_KEY"
//   - final_state: lifecycle state and a subset of instance data
//   - final_view: a subset of the host view, keyed by path
//   - last_patch: the last delivered patch, exactly
//   - reports: reported error codes, in order
//   - journal_replay: the journal replayed onto the host's initial data
//     equals the host view
//
// # Deterministic Testing
//
// Flush ids come from a sequence generator ("flush-1", "flush-2", ...),
// trace seq numbers are assigned in append order, and the loop never runs
// on its own goroutine, so identical scenarios produce identical traces.
// RunWithGolden compares the canonical JSON of the trace and final view
// against testdata/golden/<name>.golden.
package harness
