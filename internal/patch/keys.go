package patch

import (
	"slices"

	"github.com/roach88/rendersync/internal/ir"
)

// KeySet is the set of top-level keys eligible for patching (localKeys):
// declared data, computed keys and the reserved identity key.
type KeySet map[string]struct{}

// NewKeySet creates a KeySet holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts keys.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// AddObject inserts every top-level key of obj.
func (s KeySet) AddObject(obj ir.IRObject) {
	for k := range obj {
		s[k] = struct{}{}
	}
}

// Has reports whether key is in the set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Covers reports whether p's first segment is in the set.
func (s KeySet) Covers(p ir.Path) bool {
	return s.Has(p.FirstKey())
}

// Sorted returns the keys in lexical order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
