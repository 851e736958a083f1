package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rendersync/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	def := Definition{
		Name:     "Counter",
		Data:     ir.IRObject{"count": ir.IRInt(0), "user": ir.IRObject{}},
		Props:    []string{"title"},
		Methods:  []string{"inc"},
		Computed: map[string]Computed{"label": {Path: "user.name"}},
		Watch:    []string{"count", "user.name", "label", "title"},
	}
	assert.Empty(t, Validate(def))
	assert.Empty(t, Validate(&def))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want []string
	}{
		{
			name: "empty name",
			def:  Definition{Data: ir.IRObject{}},
			want: []string{ErrNameEmpty},
		},
		{
			name: "reserved identity key",
			def: Definition{
				Name:     "C",
				Data:     ir.IRObject{"__cid": ir.IRInt(1)},
				Props:    []string{"__cid"},
				Computed: map[string]Computed{"__cid": {Path: "x"}},
			},
			want: []string{ErrReservedKey, ErrReservedKey, ErrReservedKey},
		},
		{
			name: "dotted data key",
			def:  Definition{Name: "C", Data: ir.IRObject{"a.b": ir.IRInt(1)}},
			want: []string{ErrInvalidDataKey},
		},
		{
			name: "duplicate list entries",
			def: Definition{
				Name:    "C",
				Data:    ir.IRObject{"a": ir.IRInt(1)},
				Props:   []string{"p", "p"},
				Methods: []string{"m", "m"},
				Watch:   []string{"a", "a"},
			},
			want: []string{ErrDuplicateName, ErrDuplicateName, ErrDuplicateName},
		},
		{
			name: "prop shadows data",
			def:  Definition{Name: "C", Data: ir.IRObject{"a": ir.IRInt(1)}, Props: []string{"a"}},
			want: []string{ErrPropShadowsData},
		},
		{
			name: "computed shadows and bad path",
			def: Definition{
				Name:     "C",
				Data:     ir.IRObject{"a": ir.IRInt(1)},
				Computed: map[string]Computed{"a": {Path: "a..b"}},
			},
			want: []string{ErrComputedShadows, ErrInvalidPath},
		},
		{
			name: "method shadows",
			def: Definition{
				Name:     "C",
				Data:     ir.IRObject{"a": ir.IRInt(1)},
				Props:    []string{"p"},
				Computed: map[string]Computed{"c": {Path: "a"}},
				Methods:  []string{"a", "p", "c", "ok"},
			},
			want: []string{ErrMethodShadows, ErrMethodShadows, ErrMethodShadows},
		},
		{
			name: "watch paths",
			def: Definition{
				Name:  "C",
				Data:  ir.IRObject{"a": ir.IRInt(1)},
				Watch: []string{"a[", "nope.x"},
			},
			want: []string{ErrInvalidPath, ErrWatchUnknownKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.def)))
		})
	}
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate("nope")
	assert.Equal(t, []string{ErrUnsupportedType}, codes(errs))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "props[1]", Message: `duplicate name: "p"`, Code: ErrDuplicateName}
	assert.Equal(t, `[E104] props[1]: duplicate name: "p"`, e.Error())

	e.Line = 3
	assert.Equal(t, `[E104] line 3: props[1]: duplicate name: "p"`, e.Error())
}
