package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/config"
	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/testutil"
)

func compile(t *testing.T, src, path string) (*Definition, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileComponent(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileComponentBasic(t *testing.T) {
	def, err := compile(t, `
		component: Counter: {
			resource: "pages/counter"
			data: {
				count: 0
				ratio: 1.5
				user: { name: "ann", tags: ["a", "b"] }
				missing: null
				on: true
			}
			props: ["title"]
			methods: ["inc", "reset"]
			watch: ["count"]
		}
	`, "component.Counter")
	require.NoError(t, err)

	assert.Equal(t, "Counter", def.Name)
	assert.Equal(t, "pages/counter", def.Resource)
	assert.Equal(t, ir.IRObject{
		"count":   ir.IRInt(0),
		"ratio":   ir.IRFloat(1.5),
		"user":    ir.IRObject{"name": ir.IRString("ann"), "tags": ir.IRArray{ir.IRString("a"), ir.IRString("b")}},
		"missing": ir.IRNull{},
		"on":      ir.IRBool(true),
	}, def.Data)
	assert.Equal(t, []string{"title"}, def.Props)
	assert.Equal(t, []string{"inc", "reset"}, def.Methods)
	assert.Equal(t, []string{"count"}, def.Watch)
	assert.False(t, def.NativeRender)
}

func TestCompileComponentMinimal(t *testing.T) {
	def, err := compile(t, `component: Empty: {}`, "component.Empty")
	require.NoError(t, err)

	assert.Equal(t, "Empty", def.Name)
	assert.Equal(t, ir.IRObject{}, def.Data)
	assert.Nil(t, def.Computed)
}

func TestCompileComponentComputedForms(t *testing.T) {
	def, err := compile(t, `
		component: Profile: {
			data: { user: { name: "ann" }, items: [1, 2, 3] }
			computed: {
				label: "user.name"
				nick: { path: "user.nick", default: "anon" }
				count: { len: "items" }
			}
		}
	`, "component.Profile")
	require.NoError(t, err)

	assert.Equal(t, map[string]Computed{
		"label": {Path: "user.name"},
		"nick":  {Path: "user.nick", Default: ir.IRString("anon")},
		"count": {Path: "items", Len: true},
	}, def.Computed)
}

func TestCompileComponentNativeRender(t *testing.T) {
	def, err := compile(t, `component: Raw: { native_render: true }`, "component.Raw")
	require.NoError(t, err)
	assert.True(t, def.NativeRender)
}

func TestCompileComponentErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "data not a struct",
			src:     `component: Bad: { data: [1, 2] }`,
			wantErr: "data must be a struct",
		},
		{
			name:    "non-concrete data",
			src:     `component: Bad: { data: { count: int } }`,
			wantErr: "must be concrete",
		},
		{
			name:    "computed without path",
			src:     `component: Bad: { computed: { x: { default: 1 } } }`,
			wantErr: "must be a path string or an object with path or len",
		},
		{
			name:    "props not a list",
			src:     `component: Bad: { props: "title" }`,
			wantErr: "list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src, "component.Bad")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompileErrorIncludesPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`component: Bad: { data: [1] }`, cue.Filename("bad.cue"))
	require.NoError(t, v.Err())

	_, err := CompileComponent(v.LookupPath(cue.ParsePath("component.Bad")))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "data", ce.Field)
	assert.Contains(t, err.Error(), "bad.cue:1:")
}

func TestDefinitionOptions(t *testing.T) {
	def := &Definition{
		Name:     "Profile",
		Resource: "pages/profile",
		Data:     ir.IRObject{"user": ir.IRObject{"name": ir.IRString("ann")}, "items": ir.IRArray{ir.IRInt(1), ir.IRInt(2)}},
		Props:    []string{"title"},
		Methods:  []string{"save"},
		Computed: map[string]Computed{
			"label": {Path: "user.name"},
			"nick":  {Path: "user.nick", Default: ir.IRString("anon")},
			"count": {Path: "items", Len: true},
			"bad":   {Path: "a..b", Default: ir.IRInt(0)},
		},
		Watch:        []string{"user.name", "items"},
		NativeRender: true,
	}

	var seen []string
	opts := def.Options(func(path string) component.WatchHandler {
		seen = append(seen, path)
		return func(any, ir.IRValue, ir.IRValue) {}
	})

	assert.Equal(t, "Profile", opts.Name)
	assert.Equal(t, "pages/profile", opts.Resource)
	assert.Equal(t, []string{"title"}, opts.Props)
	assert.Equal(t, []string{"save"}, opts.Methods)
	assert.True(t, opts.NativeRender)
	assert.Equal(t, def.Data, opts.Data.Literal)
	assert.Len(t, opts.Watch["user.name"], 1)
	assert.Len(t, opts.Watch["items"], 1)
	assert.Equal(t, []string{"user.name", "items"}, seen)

	require.Len(t, opts.Computed, 4)
	assert.Equal(t, ir.IRString("ann"), opts.Computed["label"](def.Data))
	assert.Equal(t, ir.IRString("anon"), opts.Computed["nick"](def.Data))
	assert.Equal(t, ir.IRInt(2), opts.Computed["count"](def.Data))
	assert.Equal(t, ir.IRInt(0), opts.Computed["bad"](def.Data))

	assert.Nil(t, def.Options(nil).Watch, "no handler, no watchers")
}

func TestDefinitionOptionsDrivesInstance(t *testing.T) {
	def, err := compile(t, `
		component: Greeting: {
			data: { user: { name: "ann" } }
			computed: { label: "user.name" }
		}
	`, "component.Greeting")
	require.NoError(t, err)
	require.Empty(t, Validate(def))

	loop := engine.NewLoop()
	reg := component.NewRegistry(config.Config{}, loop, component.WithReporter(&component.RecordingReporter{}))
	host := testutil.NewFakeHost(nil)
	host.SetAutoComplete(true)

	in := reg.New(host, def.Options(nil))
	require.NoError(t, in.Created())
	assert.Equal(t, ir.IRString("ann"), host.LastPatch()["label"])

	require.NoError(t, in.Set("user.name", ir.IRString("bob")))
	loop.Drain()
	assert.Equal(t, ir.IRString("bob"), host.LastPatch()["label"])
	assert.Equal(t, ir.IRString("ann"), def.Data["user"].(ir.IRObject)["name"], "definition data is not mutated")
}
