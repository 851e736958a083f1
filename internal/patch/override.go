package patch

import (
	"github.com/roach88/rendersync/internal/ir"
)

// Override is the ForceOverride buffer: a manually supplied patch that is
// merged over the next computed patch and then discarded.
type Override struct {
	buf ir.IRObject
}

// Merge adds entries to the buffer. Later entries win over earlier ones,
// path-aware (see Merge).
func (o *Override) Merge(data ir.IRObject) {
	if len(data) == 0 {
		return
	}
	if o.buf == nil {
		o.buf = ir.IRObject{}
	}
	o.buf = Merge(o.buf, data)
}

// Empty reports whether nothing is buffered.
func (o *Override) Empty() bool {
	return len(o.buf) == 0
}

// Len returns the number of buffered paths.
func (o *Override) Len() int {
	return len(o.buf)
}

// Take returns the buffered entries and clears the buffer.
func (o *Override) Take() ir.IRObject {
	out := o.buf
	o.buf = nil
	return out
}

// Apply merges the buffer over patch, clears the buffer and returns the
// result. The buffer is cleared even when both are empty.
func (o *Override) Apply(patch ir.IRObject) ir.IRObject {
	over := o.Take()
	if len(over) == 0 {
		return patch
	}
	return Merge(patch, over)
}

// Merge returns base with every entry of over applied on top, keeping the
// patch flat:
//   - entries of base below an over path are dropped (over replaces them)
//   - an over path below an entry of base is written into a copy of that
//     entry's value
//   - otherwise the over entry is added as-is
//
// base is not modified. Over entries whose keys do not parse are added
// verbatim.
func Merge(base, over ir.IRObject) ir.IRObject {
	out := make(ir.IRObject, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}

	cands, _ := Candidates(over)
	for _, c := range cands {
		key := c.Path.String()
		merged := false
		for existing := range out {
			ep, err := ir.ParsePath(existing)
			if err != nil {
				continue
			}
			switch {
			case c.Path.IsAncestorOf(ep):
				delete(out, existing)
			case ep.IsAncestorOf(c.Path):
				out[existing] = ir.SetIn(ir.Clone(out[existing]), ep.Rel(c.Path), c.Value)
				merged = true
			}
		}
		if !merged {
			out[key] = c.Value
		}
	}

	for k, v := range over {
		if _, err := ir.ParsePath(k); err != nil {
			out[k] = v
		}
	}
	return out
}
