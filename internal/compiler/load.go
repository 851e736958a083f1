package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CompileAll compiles every component declared under the top-level
// "component" field of v, in declaration order.
func CompileAll(v cue.Value) ([]*Definition, error) {
	componentsVal := v.LookupPath(cue.ParsePath("component"))
	if !componentsVal.Exists() {
		return nil, nil
	}

	iter, err := componentsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []*Definition
	for iter.Next() {
		def, err := CompileComponent(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("component.%s: %w", iter.Label(), err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadFiles compiles each CUE file on its own and returns the components
// of all of them. A component name declared in two files is an error.
func LoadFiles(paths ...string) ([]*Definition, error) {
	ctx := cuecontext.New()
	seen := make(map[string]string)

	var defs []*Definition
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		fileDefs, err := CompileAll(v)
		if err != nil {
			return nil, err
		}
		for _, def := range fileDefs {
			if prev, ok := seen[def.Name]; ok {
				return nil, fmt.Errorf("component %q declared in both %s and %s", def.Name, prev, path)
			}
			seen[def.Name] = path
			defs = append(defs, def)
		}
	}
	return defs, nil
}
