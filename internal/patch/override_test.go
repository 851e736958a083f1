package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rendersync/internal/ir"
)

func TestOverride_WinsAndClears(t *testing.T) {
	var o Override
	o.Merge(ir.IRObject{"a": ir.IRInt(5)})

	out := o.Apply(ir.IRObject{"a": ir.IRInt(7), "b": ir.IRInt(1)})
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(5), "b": ir.IRInt(1)}, out)
	assert.True(t, o.Empty(), "buffer is consumed by exactly one flush")

	out = o.Apply(ir.IRObject{"a": ir.IRInt(7)})
	assert.Equal(t, ir.IRObject{"a": ir.IRInt(7)}, out)
}

func TestOverride_ApplyOnEmptyPatch(t *testing.T) {
	var o Override
	o.Merge(ir.IRObject{"x.y": ir.IRBool(true)})

	out := o.Apply(ir.IRObject{})
	assert.Equal(t, ir.IRObject{"x.y": ir.IRBool(true)}, out)
	assert.Equal(t, 0, o.Len())
}

func TestOverride_MergeAccumulates(t *testing.T) {
	var o Override
	o.Merge(ir.IRObject{"a": ir.IRInt(1)})
	o.Merge(ir.IRObject{"b": ir.IRInt(2), "a": ir.IRInt(3)})

	assert.Equal(t, ir.IRObject{"a": ir.IRInt(3), "b": ir.IRInt(2)}, o.Take())
	assert.True(t, o.Empty())
}

func TestMerge_PathAware(t *testing.T) {
	t.Run("over replaces descendants", func(t *testing.T) {
		out := Merge(
			ir.IRObject{"a.b": ir.IRInt(1), "a.c": ir.IRInt(2), "z": ir.IRInt(0)},
			ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(9)}},
		)
		assert.Equal(t, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(9)}, "z": ir.IRInt(0)}, out)
	})

	t.Run("over written into ancestor copy", func(t *testing.T) {
		ancestor := ir.IRObject{"b": ir.IRInt(1), "c": ir.IRInt(2)}
		base := ir.IRObject{"a": ancestor}

		out := Merge(base, ir.IRObject{"a.b": ir.IRInt(9)})
		assert.Equal(t, ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(9), "c": ir.IRInt(2)}}, out)
		assert.Equal(t, ir.IRInt(1), ancestor["b"], "base values are not mutated")
	})
}

func TestPreprocess_DropsCoveredPaths(t *testing.T) {
	out := Preprocess(ir.IRObject{
		"list":          ir.IRArray{ir.IRString("x")},
		"list[0]":       ir.IRString("x"),
		"user.name":     ir.IRString("n"),
		"user.name.len": ir.IRInt(1),
		"count":         ir.IRInt(3),
	})
	assert.Equal(t, ir.IRObject{
		"list":      ir.IRArray{ir.IRString("x")},
		"user.name": ir.IRString("n"),
		"count":     ir.IRInt(3),
	}, out)
}
