package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/ir"
)

func TestDiffLooseAndStrict(t *testing.T) {
	dir := t.TempDir()
	from := writeFile(t, dir, "from.yaml", "user:\n  name: ann\n  age: 1\ncount: 0\n")
	to := writeFile(t, dir, "to.json", `{"user": {"name": "bob", "age": 1}, "count": 0}`)

	out, err := executeCLI(t, "diff", from, to)
	require.NoError(t, err)
	assert.Equal(t, `{"user":{"age":1,"name":"bob"}}`+"\n", out)

	out, err = executeCLI(t, "--strict-diff", "diff", from, to)
	require.NoError(t, err)
	assert.Equal(t, `{"user.name":"bob"}`+"\n", out)
}

func TestDiffJSON(t *testing.T) {
	dir := t.TempDir()
	from := writeFile(t, dir, "from.json", `{"a": 1, "b": [1, 2]}`)
	to := writeFile(t, dir, "to.json", `{"a": 2, "b": [1, 2]}`)

	out, err := executeCLI(t, "--format", "json", "diff", from, to)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Mode  string         `json:"mode"`
			Paths int            `json:"paths"`
			Patch map[string]any `json:"patch"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "loose", resp.Data.Mode)
	assert.Equal(t, 1, resp.Data.Paths)
	assert.Equal(t, map[string]any{"a": float64(2)}, resp.Data.Patch)
}

func TestDiffKeysFilter(t *testing.T) {
	dir := t.TempDir()
	from := writeFile(t, dir, "from.json", `{"a": 1, "prop": 1}`)
	to := writeFile(t, dir, "to.json", `{"a": 2, "prop": 2}`)

	out, err := executeCLI(t, "diff", from, to, "--keys", "a")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`+"\n", out)
}

func TestDiffBaseline(t *testing.T) {
	dir := t.TempDir()
	view := writeFile(t, dir, "view.json", `{"a": {"b": 1, "c": 1}}`)
	data := writeFile(t, dir, "data.json", `{"a": {"b": 2, "c": 1}}`)

	out, err := executeCLI(t, "--strict-diff", "diff", view, data, "--baseline")
	require.NoError(t, err)
	assert.Equal(t, `{"a.b":2}`+"\n", out)
}

func TestDiffExitCode(t *testing.T) {
	dir := t.TempDir()
	same := writeFile(t, dir, "same.json", `{"a": 1}`)
	other := writeFile(t, dir, "other.json", `{"a": 2}`)

	_, err := executeCLI(t, "diff", same, same, "--exit-code")
	require.NoError(t, err)

	_, err = executeCLI(t, "diff", same, other, "--exit-code")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDiffUnreadableInput(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"a": 1}`)
	bad := writeFile(t, dir, "bad.yaml", "- just\n- a list\n")

	out, err := executeCLI(t, "diff", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeReadFailed)
}

func TestReadDataFile(t *testing.T) {
	dir := t.TempDir()

	empty := writeFile(t, dir, "empty.yaml", "\n")
	obj, err := readDataFile(empty)
	require.NoError(t, err)
	assert.Empty(t, obj)

	nested := writeFile(t, dir, "nested.yaml", "list: [1, 2.5, x]\nflag: true\nnothing: null\n")
	obj, err = readDataFile(nested)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"list":    ir.IRArray{ir.IRInt(1), ir.IRFloat(2.5), ir.IRString("x")},
		"flag":    ir.IRBool(true),
		"nothing": ir.IRNull{},
	}, obj)
}
