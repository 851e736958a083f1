package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Label())
			if event.Patch != nil {
				fmt.Fprintf(&buf, " %s", formatValue(event.Patch))
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	UID     int64
	Initial ir.IRObject
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal_replay.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertFinalView:
			err = assertFinalView(result, assertion)
		case AssertLastPatch:
			err = assertLastPatch(result.Trace, assertion)
		case AssertReports:
			err = assertReports(result.Trace, assertion)
		case AssertJournalReplay:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_replay requires journal context", i)
			} else {
				err = assertJournalReplay(actx, result)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertTraceContains checks if the trace contains an event with the
// label. If Patch is given, a render event must carry exactly that patch.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	var want ir.IRObject
	if assertion.Patch != nil {
		var err error
		if want, err = ir.ObjectFromGo(assertion.Patch); err != nil {
			return fmt.Errorf("trace_contains: patch: %w", err)
		}
	}

	for _, event := range trace {
		if event.Label() != assertion.Event {
			continue
		}
		if want == nil || ir.Equal(event.Patch, want) {
			return nil
		}
	}

	expected := assertion.Event
	if want != nil {
		expected += " with patch " + formatValue(want)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if labels appear in the specified order.
// Events don't need to be consecutive (intervening events are allowed), and
// a label listed twice must occur twice.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Events) && event.Label() == assertion.Events[next] {
			next++
		}
	}
	if next == len(assertion.Events) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("events in order: %v", assertion.Events),
		Actual:   fmt.Sprintf("matched %d, missing %s after them", next, assertion.Events[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks if the label appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Label() == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks the lifecycle state and a subset of instance data.
func assertFinalState(result *Result, assertion Assertion) error {
	if assertion.State != "" && assertion.State != result.State {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state %s", assertion.State),
			Actual:   fmt.Sprintf("state %s", result.State),
		}
	}
	return matchPaths(AssertFinalState, "data", result.Data, assertion.Expect)
}

// assertFinalView checks a subset of the host view.
func assertFinalView(result *Result, assertion Assertion) error {
	return matchPaths(AssertFinalView, "view", result.View, assertion.Expect)
}

// matchPaths compares the value at each expected path (subset semantics).
// Paths are checked in sorted order so the first failure is deterministic.
func matchPaths(kind, what string, actual ir.IRObject, expect map[string]any) error {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		want, err := ir.FromGo(expect[key])
		if err != nil {
			return fmt.Errorf("%s: expect %q: %w", kind, key, err)
		}
		p, err := ir.ParsePath(key)
		if err != nil {
			return fmt.Errorf("%s: expect %q: %w", kind, key, err)
		}
		got, ok := ir.GetByPath(actual, p)
		if !ok {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s %s = %s", what, key, formatValue(want)),
				Actual:   fmt.Sprintf("%s %s not present", what, key),
			}
		}
		if !ir.Equal(ir.NormalizeUndefined(got), want) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s %s = %s", what, key, formatValue(want)),
				Actual:   fmt.Sprintf("%s %s = %s", what, key, formatValue(got)),
			}
		}
	}
	return nil
}

// assertLastPatch checks the last delivered patch exactly.
func assertLastPatch(trace []TraceEvent, assertion Assertion) error {
	want, err := ir.ObjectFromGo(assertion.Patch)
	if err != nil {
		return fmt.Errorf("last_patch: patch: %w", err)
	}

	var last ir.IRObject
	found := false
	for _, event := range trace {
		if event.Type == EventRender {
			last = event.Patch
			found = true
		}
	}
	if !found {
		return &AssertionError{
			Type:     AssertLastPatch,
			Expected: formatValue(want),
			Actual:   "no patch delivered",
			Trace:    trace,
		}
	}
	if !ir.Equal(last, want) {
		return &AssertionError{
			Type:     AssertLastPatch,
			Expected: formatValue(want),
			Actual:   formatValue(last),
			Trace:    trace,
		}
	}
	return nil
}

// assertReports checks the reported codes in order. No codes means no
// reports.
func assertReports(trace []TraceEvent, assertion Assertion) error {
	var got []string
	for _, event := range trace {
		if event.Type == EventReport {
			got = append(got, event.Name)
		}
	}
	if slices.Equal(got, assertion.Codes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertReports,
		Expected: fmt.Sprintf("%v", assertion.Codes),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

// assertJournalReplay checks that replaying the journal onto the host's
// initial data reproduces the host view.
func assertJournalReplay(actx *AssertionContext, result *Result) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	replayed, err := actx.Store.ReplayOnto(ctx, actx.UID, actx.Initial)
	if err != nil {
		return fmt.Errorf("journal_replay: %w", err)
	}
	if !ir.Equal(replayed, result.View) {
		return &AssertionError{
			Type:     AssertJournalReplay,
			Expected: formatValue(result.View),
			Actual:   formatValue(replayed),
		}
	}
	return nil
}

// formatValue renders v as canonical JSON for messages.
func formatValue(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
