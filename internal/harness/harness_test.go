package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/store"
)

func TestRun_Scenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_BrokenHost(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/broken_host.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "broken", result.State)
	assert.Empty(t, result.View)
}

func TestRun_TraceSeqIsContiguous(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/force_override.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	for i, event := range result.Trace {
		assert.Equal(t, int64(i+1), event.Seq)
	}
}

func TestRun_UnexpectedStepErrorFails(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/counter_lifecycle.yaml")
	require.NoError(t, err)
	// Mounting twice is an invalid transition.
	scenario.Flow = append(scenario.Flow, Step{Op: OpMounted})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "flow[8] mounted")
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/counter_lifecycle.yaml")
	require.NoError(t, err)
	scenario.Flow[0].ExpectError = true

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, "flow[0] created: expected an error")
}

func TestRun_CompleteWithNothingPending(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/strict_fields.yaml")
	require.NoError(t, err)
	scenario.Flow = append(scenario.Flow, Step{Op: OpComplete})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "released 0 of 1 render calls")
}

func TestRun_RenderErrorDegradesToFullDiff(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/strict_fields.yaml")
	require.NoError(t, err)
	scenario.Host.RenderError = "boom"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "a failed render function falls back to the data diff: %v", result.Errors)

	var codes []string
	for _, event := range result.Trace {
		if event.Type == EventReport {
			codes = append(codes, event.Name)
		}
	}
	require.NotEmpty(t, codes)
	assert.Equal(t, "RENDER_FUNCTION", codes[0])
}

func TestRun_IgnoreRenderError(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/strict_fields.yaml")
	require.NoError(t, err)
	scenario.Host.RenderError = "boom"
	scenario.Config.IgnoreRenderError = true
	scenario.Assertions = append(scenario.Assertions, Assertion{Type: AssertReports})

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownComponent(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/counter_lifecycle.yaml")
	require.NoError(t, err)
	scenario.Component = "Missing"

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `component "Missing" not found`)
}

func TestRun_InvalidComponent(t *testing.T) {
	dir := t.TempDir()
	spec := `component: Bad: {
	data: {n: 0}
	methods: ["n"]
}
`
	path := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(spec), 0o644))

	_, err := Run(&Scenario{
		Name:       "bad",
		Specs:      []string{path},
		Flow:       []Step{{Op: OpCreated}},
		Assertions: []Assertion{{Type: AssertReports}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component Bad is invalid")
	assert.Contains(t, err.Error(), "E105")
}

func TestRunWith_ResumesJournal(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	scenario, err := LoadScenario("testdata/scenarios/counter_lifecycle.yaml")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		seq, err := st.GetLastSeq(ctx)
		require.NoError(t, err)
		uid, err := st.GetLastUID(ctx)
		require.NoError(t, err)

		result, err := RunWith(ctx, scenario, Options{
			Store:    st,
			FlushIDs: engine.UUIDv7Generator{},
			SeqStart: seq,
			UIDStart: uid,
		})
		require.NoError(t, err)
		assert.True(t, result.Pass, "errors: %v", result.Errors)
	}

	instances, err := st.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, int64(1), instances[0].UID)
	assert.Equal(t, int64(2), instances[1].UID)
	assert.Equal(t, 2, instances[1].Flushes)

	mismatches, err := st.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}
