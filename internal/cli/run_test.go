package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/store"
)

func TestRunScenarioText(t *testing.T) {
	dir := scenarioDir(t)

	out, err := executeCLI(t, "run", filepath.Join(dir, "counter_cli.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "Scenario: counter_cli")
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "journal:updated")
	assert.Contains(t, out, "State: mounted")
	assert.Contains(t, out, "✓ passed")
}

func TestRunScenarioJSON(t *testing.T) {
	dir := scenarioDir(t)

	out, err := executeCLI(t, "--format", "json", "run", filepath.Join(dir, "counter_cli.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "counter_cli", resp.Data.Name)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "mounted", resp.Data.State)

	var snapshot struct {
		ScenarioName string           `json:"scenario_name"`
		Trace        []map[string]any `json:"trace"`
		View         map[string]any   `json:"view"`
	}
	require.NoError(t, json.Unmarshal(resp.Data.Trace, &snapshot))
	assert.Equal(t, "counter_cli", snapshot.ScenarioName)
	assert.NotEmpty(t, snapshot.Trace)
	assert.Equal(t, float64(1), snapshot.View["count"])
}

func TestRunScenarioFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "specs/counter.cue", counterSpec)
	scenario := writeFile(t, dir, "wrong.yaml", `name: wrong
specs: [specs/counter.cue]
component: Counter
flow:
  - op: created
  - op: complete
  - op: drain
assertions:
  - type: final_state
    state: mounted
`)

	out, err := executeCLI(t, "run", scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failed")
}

func TestRunScenarioMissingFile(t *testing.T) {
	_, err := executeCLI(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunStrictDiffFlag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "specs/profile.cue", profileSpec)
	scenario := writeFile(t, dir, "profile.yaml", `name: profile_strict
specs: [specs/profile.cue]
component: Profile
host:
  auto_complete: true
flow:
  - op: created
  - op: drain
  - op: mounted
  - op: set
    path: user.name
    value: bob
  - op: drain
assertions:
  - type: last_patch
    patch: {user.name: bob}
`)

	_, err := executeCLI(t, "run", scenario)
	require.Error(t, err, "loose mode sends the whole user object")

	_, err = executeCLI(t, "--strict-diff", "run", scenario)
	require.NoError(t, err)
}

func TestRunAppendsJournal(t *testing.T) {
	dir := scenarioDir(t)
	dbPath := filepath.Join(dir, "journal.db")
	scenario := filepath.Join(dir, "counter_cli.yaml")

	_, err := executeCLI(t, "run", scenario, "--db", dbPath)
	require.NoError(t, err)
	_, err = executeCLI(t, "run", scenario, "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	instances, err := st.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, int64(1), instances[0].UID)
	assert.Equal(t, int64(2), instances[1].UID)
	for _, in := range instances {
		assert.Equal(t, "Counter", in.Component)
		assert.Equal(t, 2, in.Flushes)
	}

	mismatches, err := st.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}
