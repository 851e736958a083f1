package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rendersync/internal/ir"
)

// GoldenDir is where RunWithGolden keeps its fixtures, relative to the
// package under test.
const GoldenDir = "testdata/golden"

// canonical returns the event as plain data for ir.MarshalCanonical.
// Empty fields are left out so that golden files only carry what happened.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"type": e.Type,
		"seq":  e.Seq,
	}
	optional := map[string]string{"name": e.Name, "path": e.Path, "flush_id": e.FlushID}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	if e.Patch != nil {
		m["patch"] = e.Patch
	}
	if e.Value != nil {
		m["value"] = e.Value
	}
	return m
}

// MarshalSnapshot renders the trace and final view of result as canonical
// JSON: {"scenario_name", "trace", "view"} with sorted keys and no
// insignificant whitespace. Equal runs give byte-identical snapshots.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		trace[i] = e.canonical()
	}
	view := result.View
	if view == nil {
		view = ir.IRObject{}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"trace":         trace,
		"view":          view,
	})
}

// RunWithGolden runs scenario and compares its snapshot with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	snapshot, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
	return result, nil
}
