package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
)

// Definition is a component definition compiled from CUE.
//
// A definition is pure data: computed values are declarative (an alias of
// a data path, optionally with a default, or the length of a sequence) and
// methods and watchers are declared by name only. Options turns it into
// runnable component.Options.
type Definition struct {
	Name         string              `json:"name"`
	Resource     string              `json:"resource,omitempty"`
	Data         ir.IRObject         `json:"data"`
	Props        []string            `json:"props,omitempty"`
	Methods      []string            `json:"methods,omitempty"`
	Computed     map[string]Computed `json:"computed,omitempty"`
	Watch        []string            `json:"watch,omitempty"`
	NativeRender bool                `json:"native_render,omitempty"`
}

// Computed declares how a computed key is derived from data.
type Computed struct {
	// Path is the data path the value is read from.
	Path string `json:"path"`
	// Default is used when Path is absent. nil leaves the value undefined.
	Default ir.IRValue `json:"default,omitempty"`
	// Len yields the length of the sequence, object or string at Path
	// instead of the value itself.
	Len bool `json:"len,omitempty"`
}

// CompileComponent parses a CUE value into a Definition.
//
// The CUE value should be the component struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`component: Counter: { data: { count: 0 } }`)
//	def, err := CompileComponent(v.LookupPath(cue.ParsePath("component.Counter")))
func CompileComponent(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{Data: ir.IRObject{}}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	var err error
	if def.Resource, err = optionalString(v, "resource"); err != nil {
		return nil, err
	}

	if dataVal := v.LookupPath(cue.ParsePath("data")); dataVal.Exists() {
		data, err := toIR(dataVal)
		if err != nil {
			return nil, err
		}
		obj, ok := data.(ir.IRObject)
		if !ok {
			return nil, &CompileError{
				Field:   "data",
				Message: "data must be a struct",
				Pos:     dataVal.Pos(),
			}
		}
		def.Data = obj
	}

	if def.Props, err = stringList(v, "props"); err != nil {
		return nil, err
	}
	if def.Methods, err = stringList(v, "methods"); err != nil {
		return nil, err
	}
	if def.Watch, err = stringList(v, "watch"); err != nil {
		return nil, err
	}
	if def.Computed, err = parseComputed(v); err != nil {
		return nil, err
	}

	if nativeVal := v.LookupPath(cue.ParsePath("native_render")); nativeVal.Exists() {
		native, err := nativeVal.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.NativeRender = native
	}

	return def, nil
}

// parseComputed extracts computed declarations. Supports:
// - String alias: label: "user.name"
// - Object: label: { path: "user.name", default: "anon" }
// - Length: count: { len: "items" }
func parseComputed(v cue.Value) (map[string]Computed, error) {
	computedVal := v.LookupPath(cue.ParsePath("computed"))
	if !computedVal.Exists() {
		return nil, nil
	}

	iter, err := computedVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]Computed)
	for iter.Next() {
		key := iter.Label()
		val := iter.Value()

		if path, err := val.String(); err == nil {
			out[key] = Computed{Path: path}
			continue
		}

		if lenVal := val.LookupPath(cue.ParsePath("len")); lenVal.Exists() {
			path, err := lenVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			out[key] = Computed{Path: path, Len: true}
			continue
		}

		pathVal := val.LookupPath(cue.ParsePath("path"))
		if !pathVal.Exists() {
			return nil, &CompileError{
				Field:   "computed." + key,
				Message: "must be a path string or an object with path or len",
				Pos:     val.Pos(),
			}
		}
		path, err := pathVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c := Computed{Path: path}
		if defVal := val.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			if c.Default, err = toIR(defVal); err != nil {
				return nil, err
			}
		}
		out[key] = c
	}
	return out, nil
}

// toIR converts a concrete CUE value to an IR value.
func toIR(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRFloat(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := toIR(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   pathOf(v),
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func pathOf(v cue.Value) string {
	if p := v.Path().String(); p != "" {
		return p
	}
	return "value"
}

// Options builds runnable component options from the definition. watch,
// if non-nil, supplies the handler for each declared watch path.
func (d *Definition) Options(watch func(path string) component.WatchHandler) component.Options {
	opts := component.Options{
		Name:         d.Name,
		Resource:     d.Resource,
		Data:         component.LiteralData(d.Data),
		Props:        slices.Clone(d.Props),
		Methods:      slices.Clone(d.Methods),
		NativeRender: d.NativeRender,
	}

	if len(d.Computed) > 0 {
		opts.Computed = make(map[string]component.Computed, len(d.Computed))
		for key, c := range d.Computed {
			opts.Computed[key] = c.fn()
		}
	}

	if watch != nil && len(d.Watch) > 0 {
		opts.Watch = make(map[string][]component.WatchHandler, len(d.Watch))
		for _, path := range d.Watch {
			if h := watch(path); h != nil {
				opts.Watch[path] = append(opts.Watch[path], h)
			}
		}
	}
	return opts
}

// fn returns the evaluator for c. An unparsable path evaluates to the
// default; Validate reports it.
func (c Computed) fn() component.Computed {
	p, err := ir.ParsePath(c.Path)
	return func(data ir.IRObject) ir.IRValue {
		if err != nil {
			return ir.Clone(c.Default)
		}
		v, ok := ir.GetByPath(data, p)
		if !ok {
			return ir.Clone(c.Default)
		}
		if c.Len {
			switch val := v.(type) {
			case ir.IRArray:
				return ir.IRInt(len(val))
			case ir.IRObject:
				return ir.IRInt(len(val))
			case ir.IRString:
				return ir.IRInt(len([]rune(string(val))))
			default:
				return ir.Clone(c.Default)
			}
		}
		return ir.Clone(v)
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
