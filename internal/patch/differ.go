package patch

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rendersync/internal/ir"
)

// Mode selects the diff strategy.
type Mode int

const (
	// ModeLoose diffs each candidate against the cache entry at the identical
	// path and purges entries not visited in the round.
	ModeLoose Mode = iota
	// ModeStrict reasons about path containment and emits field-level patches.
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "loose"
}

// Candidate is one path of a render snapshot together with its current value.
type Candidate struct {
	Path  ir.Path
	Value ir.IRValue
}

// Candidates parses the keys of a render snapshot into paths, sorted so that
// ancestors precede descendants. Keys that do not parse are skipped and
// reported in the returned error.
func Candidates(renderData ir.IRObject) ([]Candidate, error) {
	out := make([]Candidate, 0, len(renderData))
	var errs []error
	for key, v := range renderData {
		p, err := ir.ParsePath(key)
		if err != nil {
			errs = append(errs, fmt.Errorf("render key %q: %w", key, err))
			continue
		}
		out = append(out, Candidate{Path: p, Value: v})
	}
	slices.SortFunc(out, func(a, b Candidate) int { return a.Path.Compare(b.Path) })
	return out, errors.Join(errs...)
}

// Differ computes patches against a Cache. A Differ belongs to exactly one
// component instance and is not safe for concurrent use.
type Differ struct {
	Mode       Mode
	Comparator ir.Comparator
	LocalKeys  KeySet
	Cache      *Cache
}

// NewDiffer creates a Differ with an empty cache and the structural
// comparator.
func NewDiffer(mode Mode, localKeys KeySet) *Differ {
	return &Differ{
		Mode:       mode,
		Comparator: ir.StructuralComparator{},
		LocalKeys:  localKeys,
		Cache:      NewCache(),
	}
}

// Diff computes the patch for renderData and updates the cache to reflect
// it. baseline is the host's last-applied view, consulted by strict mode
// when a path has no cached relative; it may be nil.
//
// The returned patch is non-nil. A non-nil error only reports render keys
// that could not be parsed; the patch still covers every valid key.
func (d *Differ) Diff(renderData, baseline ir.IRObject) (ir.IRObject, error) {
	cands, err := Candidates(renderData)
	if d.Mode == ModeStrict {
		return d.strict(cands, baseline), err
	}
	return d.loose(cands), err
}

// Record updates the cache to reflect values delivered outside of Diff,
// such as a force override merged over a patch. Paths outside LocalKeys
// are ignored; unparseable keys are skipped.
func (d *Differ) Record(delivered ir.IRObject) {
	cands, _ := Candidates(delivered)
	if d.Mode == ModeStrict {
		d.strict(cands, nil)
		return
	}
	for _, c := range cands {
		if d.LocalKeys.Covers(c.Path) {
			d.Cache.Set(c.Path, ir.Clone(c.Value))
		}
	}
}

func (d *Differ) comparator() ir.Comparator {
	if d.Comparator == nil {
		return ir.StructuralComparator{}
	}
	return d.Comparator
}

// loose compares each candidate with the entry at the same path string only.
// Entries not visited this round are purged so that a path which disappears
// and later reappears with its old value is still reported as changed.
func (d *Differ) loose(cands []Candidate) ir.IRObject {
	out := ir.IRObject{}
	cmp := d.comparator()
	visited := make(map[string]struct{}, len(cands))

	for _, c := range cands {
		key := c.Path.String()
		prev, _ := d.Cache.Get(c.Path)
		res := cmp.DiffAndClone(c.Value, prev)
		if res.Changed && d.LocalKeys.Covers(c.Path) {
			d.Cache.Set(c.Path, res.Clone)
			out[key] = res.Clone
		}
		visited[key] = struct{}{}
	}

	d.Cache.Retain(func(p ir.Path) bool {
		_, ok := visited[p.String()]
		return ok
	})
	return out
}

// strict resolves each candidate against the cache in four steps: exact hit,
// cached descendants (superseded), cached ancestor (updated in place), and
// finally the host baseline or a fresh insert.
func (d *Differ) strict(cands []Candidate, baseline ir.IRObject) ir.IRObject {
	out := ir.IRObject{}
	cmp := d.comparator()

	for _, c := range cands {
		if !d.LocalKeys.Covers(c.Path) {
			continue
		}
		key := c.Path.String()

		if prev, ok := d.Cache.Get(c.Path); ok {
			res := cmp.DiffAndClone(c.Value, prev)
			if res.Changed {
				d.Cache.Set(c.Path, res.Clone)
				emit(out, key, res)
			}
			continue
		}

		if desc := d.Cache.Descendants(c.Path); len(desc) > 0 {
			for _, p := range desc {
				d.Cache.Delete(p)
			}
			clone := ir.Clone(c.Value)
			d.Cache.Set(c.Path, clone)
			out[key] = clone
			continue
		}

		if anc, ok := d.Cache.Ancestor(c.Path); ok {
			d.updateWithin(anc, c, out)
			continue
		}

		if _, ok := baseline[c.Path.FirstKey()]; ok {
			base, _ := ir.GetByPath(baseline, c.Path)
			res := cmp.DiffAndClone(c.Value, base)
			d.Cache.Set(c.Path, res.Clone)
			if res.Changed {
				emit(out, key, res)
			}
			continue
		}

		clone := ir.Clone(c.Value)
		d.Cache.Set(c.Path, clone)
		out[key] = clone
	}
	return out
}

// updateWithin diffs c against the part of the value cached at anc that c
// addresses, and writes the new leaf into the cached value on change.
// Siblings of the leaf are untouched.
func (d *Differ) updateWithin(anc ir.Path, c Candidate, out ir.IRObject) {
	rel := anc.Rel(c.Path)
	root, _ := d.Cache.Get(anc)
	prev, _ := ir.GetByPath(root, rel)

	res := d.comparator().DiffAndClone(c.Value, prev)
	if !res.Changed {
		return
	}
	d.Cache.Set(anc, ir.SetIn(root, rel, res.Clone))
	emit(out, c.Path.String(), res)
}

// emit writes a diff result under key, fanned out into field entries when
// the comparator reported a field-level diff.
func emit(out ir.IRObject, key string, res ir.DiffResult) {
	if res.Fields == nil {
		out[key] = res.Clone
		return
	}
	for suffix, v := range res.Fields {
		out[key+suffix] = v
	}
}
