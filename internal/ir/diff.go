package ir

import "slices"

// DefaultMaxFields bounds the field-level fan-out of a single diff. Above
// it a whole-value replacement is smaller than the list of set operations.
const DefaultMaxFields = 16

// DiffResult is the outcome of comparing a new value against a baseline.
type DiffResult struct {
	// Clone is a deep copy of the new value, safe to cache.
	Clone IRValue

	// Changed reports whether the new value differs from the baseline.
	Changed bool

	// Fields holds a field-level fan-out when the change is confined below
	// the root: suffix (".x", "[2].y") -> sub-value of Clone. Nil when the
	// whole value must be replaced.
	Fields map[string]IRValue
}

// Comparator compares a new value against a previously delivered one and
// returns a clone of the new value together with the verdict.
type Comparator interface {
	DiffAndClone(next, prev IRValue) DiffResult
}

// StructuralComparator is the default Comparator. Object key-set changes,
// array length changes and kind changes are reported at the container that
// changed; scalar changes are reported at the leaf.
type StructuralComparator struct {
	// MaxFields caps the fan-out; zero means DefaultMaxFields, negative
	// disables fan-out entirely.
	MaxFields int
}

// DiffAndClone implements Comparator.
func (c StructuralComparator) DiffAndClone(next, prev IRValue) DiffResult {
	clone := Clone(next)

	var changed []Path
	diffPaths(next, prev, nil, &changed)
	if len(changed) == 0 {
		return DiffResult{Clone: clone}
	}

	res := DiffResult{Clone: clone, Changed: true}
	limit := c.MaxFields
	if limit == 0 {
		limit = DefaultMaxFields
	}
	if limit < 0 || len(changed) > limit || slices.ContainsFunc(changed, func(p Path) bool { return len(p) == 0 }) {
		return res
	}

	res.Fields = make(map[string]IRValue, len(changed))
	for _, p := range changed {
		sub, _ := GetByPath(clone, p)
		res.Fields[p.Suffix()] = sub
	}
	return res
}

// diffPaths appends to out the shallowest paths at which next and prev
// differ. at is shared between calls; entries appended to out are copies.
func diffPaths(next, prev IRValue, at Path, out *[]Path) {
	switch nv := next.(type) {
	case IRObject:
		pv, ok := prev.(IRObject)
		if !ok || !sameKeys(nv, pv) {
			*out = append(*out, slices.Clone(at))
			return
		}
		for _, k := range nv.SortedKeys() {
			diffPaths(nv[k], pv[k], append(at, KeySeg(k)), out)
		}
	case IRArray:
		pv, ok := prev.(IRArray)
		if !ok || len(nv) != len(pv) {
			*out = append(*out, slices.Clone(at))
			return
		}
		for i := range nv {
			diffPaths(nv[i], pv[i], append(at, IndexSeg(i)), out)
		}
	default:
		if !Equal(next, prev) {
			*out = append(*out, slices.Clone(at))
		}
	}
}

func sameKeys(a, b IRObject) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
