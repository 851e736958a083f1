package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.add(TraceEvent{Type: EventStep, Name: OpCreated})
	r.add(TraceEvent{Type: EventRender, FlushID: "flush-1", Patch: ir.IRObject{"a": ir.IRInt(1)}})
	r.add(TraceEvent{Type: EventJournal, Name: "mounted"})
	r.add(TraceEvent{Type: EventCallback, Name: "done"})
	r.add(TraceEvent{Type: EventRender, FlushID: "flush-2", Patch: ir.IRObject{"a": ir.IRInt(2)}})
	r.add(TraceEvent{Type: EventReport, Name: "DUPLICATE_KEY", Path: "a"})
	r.View = ir.IRObject{"a": ir.IRInt(2), "user": ir.IRObject{"name": ir.IRString("ann")}}
	r.Data = ir.IRObject{"a": ir.IRInt(2)}
	r.State = "mounted"
	return r
}

func TestTraceEvent_Label(t *testing.T) {
	assert.Equal(t, "render", TraceEvent{Type: EventRender}.Label())
	assert.Equal(t, "journal:updated", TraceEvent{Type: EventJournal, Name: "updated"}.Label())
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"contains label", Assertion{Type: AssertTraceContains, Event: "callback:done"}, ""},
		{"contains patch", Assertion{Type: AssertTraceContains, Event: "render", Patch: map[string]any{"a": 2}}, ""},
		{"contains wrong patch", Assertion{Type: AssertTraceContains, Event: "render", Patch: map[string]any{"a": 3}}, `render with patch {"a":3}`},
		{"contains missing", Assertion{Type: AssertTraceContains, Event: "journal:updated"}, "not found in trace"},
		{"order", Assertion{Type: AssertTraceOrder, Events: []string{"render", "callback:done", "render"}}, ""},
		{"order wrong", Assertion{Type: AssertTraceOrder, Events: []string{"callback:done", "journal:mounted"}}, "missing journal:mounted"},
		{"order repeated label needs two", Assertion{Type: AssertTraceOrder, Events: []string{"callback:done", "render", "render"}}, "matched 2"},
		{"count", Assertion{Type: AssertTraceCount, Event: "render", Count: 2}, ""},
		{"count zero", Assertion{Type: AssertTraceCount, Event: "journal:updated", Count: 0}, ""},
		{"count wrong", Assertion{Type: AssertTraceCount, Event: "render", Count: 1}, "2 occurrences"},
		{"state", Assertion{Type: AssertFinalState, State: "mounted", Expect: map[string]any{"a": 2}}, ""},
		{"state wrong", Assertion{Type: AssertFinalState, State: "destroyed"}, "state destroyed"},
		{"state data wrong", Assertion{Type: AssertFinalState, Expect: map[string]any{"a": 1}}, "data a = 2"},
		{"view nested path", Assertion{Type: AssertFinalView, Expect: map[string]any{"user.name": "ann"}}, ""},
		{"view missing path", Assertion{Type: AssertFinalView, Expect: map[string]any{"user.age": 1}}, "view user.age not present"},
		{"last patch", Assertion{Type: AssertLastPatch, Patch: map[string]any{"a": 2}}, ""},
		{"last patch is exact", Assertion{Type: AssertLastPatch, Patch: map[string]any{}}, `Actual: {"a":2}`},
		{"reports", Assertion{Type: AssertReports, Codes: []string{"DUPLICATE_KEY"}}, ""},
		{"reports none", Assertion{Type: AssertReports}, "[DUPLICATE_KEY]"},
		{"replay without store", Assertion{Type: AssertJournalReplay}, "requires journal context"},
		{"unknown", Assertion{Type: "nope"}, `unknown assertion type "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion}, nil)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestLastPatch_NoRender(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertLastPatch, Patch: map[string]any{}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no patch delivered")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1",
		Actual:   "2",
		Trace:    sampleResult().Trace,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, `[2] render {"a":1}`)
	assert.Contains(t, msg, "[4] callback:done")
}

func TestJournalReplay(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for i, p := range []ir.IRObject{
		{"a": ir.IRInt(1), "user": ir.IRObject{"name": ir.IRString("bob")}},
		{"a": ir.IRInt(2)},
	} {
		require.NoError(t, st.RecordFlush(ctx, component.Flush{
			ID:        []string{"f1", "f2"}[i],
			Seq:       int64(i + 1),
			Component: "sample",
			UID:       1,
			Mounted:   true,
			Patch:     p,
		}))
	}

	actx := &AssertionContext{
		Store:   st,
		Ctx:     ctx,
		UID:     1,
		Initial: ir.IRObject{"user": ir.IRObject{"name": ir.IRString("ann")}},
	}
	result := sampleResult()
	result.View = ir.IRObject{"a": ir.IRInt(2), "user": ir.IRObject{"name": ir.IRString("bob")}}
	assert.Empty(t, EvaluateAssertions(result, []Assertion{{Type: AssertJournalReplay}}, actx))

	result.View = ir.IRObject{"a": ir.IRInt(3)}
	errs := EvaluateAssertions(result, []Assertion{{Type: AssertJournalReplay}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "journal_replay")
}
