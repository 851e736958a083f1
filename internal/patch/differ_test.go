package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/ir"
)

func mustDiff(t *testing.T, d *Differ, data, baseline ir.IRObject) ir.IRObject {
	t.Helper()
	out, err := d.Diff(data, baseline)
	require.NoError(t, err)
	return out
}

func TestDiff_IdempotentEmpty(t *testing.T) {
	for _, mode := range []Mode{ModeLoose, ModeStrict} {
		t.Run(mode.String(), func(t *testing.T) {
			d := NewDiffer(mode, NewKeySet("a", "b"))
			data := ir.IRObject{"a": ir.IRInt(1), "b": ir.IRObject{"c": ir.IRArray{ir.IRInt(2)}}}

			first := mustDiff(t, d, data, nil)
			assert.NotEmpty(t, first)

			second := mustDiff(t, d, ir.CloneObject(data), nil)
			assert.Empty(t, second)
		})
	}
}

func TestDiff_FirstFlushScenario(t *testing.T) {
	data := ir.IRObject{"a": ir.IRInt(1), "b": ir.IRObject{"c": ir.IRInt(2)}}

	t.Run("loose", func(t *testing.T) {
		d := NewDiffer(ModeLoose, NewKeySet("a", "b"))
		out := mustDiff(t, d, data, nil)
		assert.Equal(t, ir.IRObject{"a": ir.IRInt(1), "b": ir.IRObject{"c": ir.IRInt(2)}}, out)
		assert.Equal(t, 2, d.Cache.Len())
	})

	t.Run("strict", func(t *testing.T) {
		d := NewDiffer(ModeStrict, NewKeySet("a", "b"))
		out := mustDiff(t, d, data, nil)
		assert.Equal(t, ir.IRObject{"a": ir.IRInt(1), "b": ir.IRObject{"c": ir.IRInt(2)}}, out)
		assert.Equal(t, 2, d.Cache.Len())
	})

	t.Run("strict against host baseline", func(t *testing.T) {
		d := NewDiffer(ModeStrict, NewKeySet("a", "b"))
		baseline := ir.IRObject{"a": ir.IRInt(1), "b": ir.IRObject{"c": ir.IRInt(0)}}
		out := mustDiff(t, d, data, baseline)
		assert.Equal(t, ir.IRObject{"b.c": ir.IRInt(2)}, out)
		assert.Equal(t, 2, d.Cache.Len(), "unchanged paths are still cached")
	})
}

func TestDiff_LocalKeysFilter(t *testing.T) {
	for _, mode := range []Mode{ModeLoose, ModeStrict} {
		t.Run(mode.String(), func(t *testing.T) {
			d := NewDiffer(mode, NewKeySet("own"))
			out := mustDiff(t, d, ir.IRObject{"own": ir.IRInt(1), "prop": ir.IRInt(2)}, nil)
			assert.Equal(t, ir.IRObject{"own": ir.IRInt(1)}, out)
		})
	}
}

func TestDiff_LooseGC(t *testing.T) {
	d := NewDiffer(ModeLoose, NewKeySet("a", "p"))

	mustDiff(t, d, ir.IRObject{"a": ir.IRInt(1), "p": ir.IRInt(7)}, nil)

	out := mustDiff(t, d, ir.IRObject{"a": ir.IRInt(1)}, nil)
	assert.Empty(t, out)
	_, cached := d.Cache.Get(ir.MustParsePath("p"))
	assert.False(t, cached, "path omitted from the round is purged")

	out = mustDiff(t, d, ir.IRObject{"a": ir.IRInt(1), "p": ir.IRInt(7)}, nil)
	assert.Equal(t, ir.IRObject{"p": ir.IRInt(7)}, out, "reintroduced path with its old value must still be sent")
}

func TestDiff_LooseExactPathOnly(t *testing.T) {
	d := NewDiffer(ModeLoose, NewKeySet("a"))

	mustDiff(t, d, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(1)}}, nil)
	out := mustDiff(t, d, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(2)}}, nil)
	assert.Equal(t, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(2)}}, out, "loose mode never fans out")
}

func TestDiff_StrictAncestorSupersede(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("a"))
	d.Cache.Set(ir.MustParsePath("a.b"), ir.IRObject{"x": ir.IRInt(1)})

	next := ir.IRObject{"b": ir.IRObject{"x": ir.IRInt(1), "y": ir.IRInt(2)}}
	out := mustDiff(t, d, ir.IRObject{"a": next}, nil)

	assert.Equal(t, ir.IRObject{"a": next}, out)
	_, stale := d.Cache.Get(ir.MustParsePath("a.b"))
	assert.False(t, stale)
	cached, ok := d.Cache.Get(ir.MustParsePath("a"))
	require.True(t, ok)
	assert.Equal(t, next, cached)
}

func TestDiff_StrictDescendantUpdate(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("a"))
	d.Cache.Set(ir.MustParsePath("a"), ir.IRObject{
		"b":       ir.IRObject{"x": ir.IRInt(1)},
		"sibling": ir.IRString("keep"),
	})

	out := mustDiff(t, d, ir.IRObject{"a.b.x": ir.IRInt(2)}, nil)
	assert.Equal(t, ir.IRObject{"a.b.x": ir.IRInt(2)}, out)

	cached, ok := d.Cache.Get(ir.MustParsePath("a"))
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"b":       ir.IRObject{"x": ir.IRInt(2)},
		"sibling": ir.IRString("keep"),
	}, cached)
	assert.Equal(t, 1, d.Cache.Len(), "descendant update does not add entries")

	out = mustDiff(t, d, ir.IRObject{"a.b.x": ir.IRInt(2)}, nil)
	assert.Empty(t, out)
}

func TestDiff_StrictDescendantCreatesContainers(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("a"))
	d.Cache.Set(ir.MustParsePath("a"), ir.IRObject{})

	out := mustDiff(t, d, ir.IRObject{"a.list[1].t": ir.IRString("x")}, nil)
	assert.Equal(t, ir.IRObject{"a.list[1].t": ir.IRString("x")}, out)

	cached, _ := d.Cache.Get(ir.MustParsePath("a"))
	v, ok := ir.GetByPath(cached, ir.MustParsePath("list[1].t"))
	require.True(t, ok)
	assert.Equal(t, ir.IRString("x"), v)
}

func TestDiff_StrictFieldFanOut(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("user"))
	mustDiff(t, d, ir.IRObject{"user": ir.IRObject{"name": ir.IRString("a"), "age": ir.IRInt(1)}}, nil)

	out := mustDiff(t, d, ir.IRObject{"user": ir.IRObject{"name": ir.IRString("b"), "age": ir.IRInt(1)}}, nil)
	assert.Equal(t, ir.IRObject{"user.name": ir.IRString("b")}, out)

	cached, _ := d.Cache.Get(ir.MustParsePath("user"))
	assert.Equal(t, ir.IRObject{"name": ir.IRString("b"), "age": ir.IRInt(1)}, cached)
}

func TestDiff_StrictSiblingFlushThenAncestor(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("a"))
	baseline := ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(1), "c": ir.IRInt(1)}}

	out := mustDiff(t, d, ir.IRObject{"a.b": ir.IRInt(2)}, baseline)
	assert.Equal(t, ir.IRObject{"a.b": ir.IRInt(2)}, out)

	out = mustDiff(t, d, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(2), "c": ir.IRInt(1)}}, baseline)
	assert.Equal(t, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(2), "c": ir.IRInt(1)}}, out)
	assert.Equal(t, []string{"a"}, paths(d.Cache.Paths()))
}

func TestDiff_InvalidKeysReported(t *testing.T) {
	d := NewDiffer(ModeLoose, NewKeySet("a"))
	out, err := d.Diff(ir.IRObject{"a": ir.IRInt(1), "a..b": ir.IRInt(2)}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a..b"`)
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(1)}, out)
}

func TestDiff_CacheNeverAliasesData(t *testing.T) {
	d := NewDiffer(ModeStrict, NewKeySet("a"))
	data := ir.IRObject{"a": ir.IRObject{"x": ir.IRInt(1)}}
	mustDiff(t, d, data, nil)

	data["a"].(ir.IRObject)["x"] = ir.IRInt(5)
	out := mustDiff(t, d, data, nil)
	assert.Equal(t, ir.IRObject{"a.x": ir.IRInt(5)}, out, "in-place mutation must be detected")
}

func TestDiff_RecordTracksDeliveredOverride(t *testing.T) {
	for _, mode := range []Mode{ModeLoose, ModeStrict} {
		t.Run(mode.String(), func(t *testing.T) {
			d := NewDiffer(mode, NewKeySet("a"))
			mustDiff(t, d, ir.IRObject{"a": ir.IRInt(7)}, nil)

			d.Record(ir.IRObject{"a": ir.IRInt(5), "prop": ir.IRInt(1)})

			v, ok := d.Cache.Get(ir.MustParsePath("a"))
			require.True(t, ok)
			assert.Equal(t, ir.IRInt(5), v)
			_, ok = d.Cache.Get(ir.MustParsePath("prop"))
			assert.False(t, ok, "non-local paths are never cached")

			out := mustDiff(t, d, ir.IRObject{"a": ir.IRInt(7)}, nil)
			assert.Equal(t, ir.IRObject{"a": ir.IRInt(7)}, out, "data that differs from the forced value is sent again")
		})
	}
}
