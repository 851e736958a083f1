package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported type for validation

	// Definition errors (E101-E109)
	ErrNameEmpty        = "E101" // component name is required
	ErrReservedKey      = "E102" // data, prop or computed uses the identity key
	ErrInvalidDataKey   = "E103" // data key is not a plain key
	ErrDuplicateName    = "E104" // name listed twice in props/methods/watch
	ErrMethodShadows    = "E105" // method shadows a data, prop or computed key
	ErrPropShadowsData  = "E106" // prop also declared as data
	ErrInvalidPath      = "E107" // computed or watch path does not parse
	ErrComputedShadows  = "E108" // computed key also declared as data or prop
	ErrWatchUnknownKey  = "E109" // watch path root is not a declared key
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled definition.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *Definition:
		return validateDefinition(def)
	case Definition:
		return validateDefinition(&def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateDefinition(def *Definition) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(def.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "component name is required and must be non-empty",
			Code:    ErrNameEmpty,
		})
	}

	for _, key := range def.Data.SortedKeys() {
		field := "data." + key
		if key == component.IdentityKey {
			errs = append(errs, reserved(field))
			continue
		}
		// E103: a data key must parse as a single key segment
		if p, err := ir.ParsePath(key); err != nil || len(p) != 1 || p[0].IsIndex {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("data key %q must be a plain key without dots or brackets", key),
				Code:    ErrInvalidDataKey,
			})
		}
	}

	errs = append(errs, duplicates("props", def.Props)...)
	errs = append(errs, duplicates("methods", def.Methods)...)
	errs = append(errs, duplicates("watch", def.Watch)...)

	for i, prop := range def.Props {
		field := fmt.Sprintf("props[%d]", i)
		if prop == component.IdentityKey {
			errs = append(errs, reserved(field))
			continue
		}
		if _, ok := def.Data[prop]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("prop %q is also declared as data", prop),
				Code:    ErrPropShadowsData,
			})
		}
	}

	computedKeys := make([]string, 0, len(def.Computed))
	for key := range def.Computed {
		computedKeys = append(computedKeys, key)
	}
	slices.Sort(computedKeys)
	for _, key := range computedKeys {
		field := "computed." + key
		if key == component.IdentityKey {
			errs = append(errs, reserved(field))
			continue
		}
		_, inData := def.Data[key]
		if inData || slices.Contains(def.Props, key) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("computed key %q is also declared as data or prop", key),
				Code:    ErrComputedShadows,
			})
		}
		if _, err := ir.ParsePath(def.Computed[key].Path); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".path",
				Message: err.Error(),
				Code:    ErrInvalidPath,
			})
		}
	}

	for i, m := range def.Methods {
		_, inData := def.Data[m]
		_, inComputed := def.Computed[m]
		if inData || inComputed || slices.Contains(def.Props, m) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("methods[%d]", i),
				Message: fmt.Sprintf("method %q is duplicated with data/props/computed", m),
				Code:    ErrMethodShadows,
			})
		}
	}

	for i, path := range def.Watch {
		field := fmt.Sprintf("watch[%d]", i)
		p, err := ir.ParsePath(path)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrInvalidPath,
			})
			continue
		}
		root := p.FirstKey()
		_, inData := def.Data[root]
		_, inComputed := def.Computed[root]
		if !inData && !inComputed && !slices.Contains(def.Props, root) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("watch path %q does not start at a data, prop or computed key", path),
				Code:    ErrWatchUnknownKey,
			})
		}
	}

	return errs
}

func reserved(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%q is reserved for the instance identity", component.IdentityKey),
		Code:    ErrReservedKey,
	}
}

// duplicates reports every repeated entry of list after its first use.
func duplicates(field string, list []string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(list))
	for i, name := range list {
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("duplicate name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		seen[name] = true
	}
	return errs
}
