package patch

import (
	"slices"

	"github.com/roach88/rendersync/internal/ir"
)

// Cache is the PathCache: the authoritative record of what was last
// delivered to the host, at which path.
//
// INVARIANTS:
//   - every value equals, structurally, what was last delivered for that
//     exact path; never a speculative or in-flight value
//   - index holds exactly the paths in entries, sorted by ir.Path.Compare
//   - in strict mode no cached path is an ancestor of another (the
//     strict differ maintains this; loose mode keeps exact paths only)
//
// Ancestor lookup probes each prefix of a path (O(depth)); descendant lookup
// is a binary search into the sorted index, since ir.Path.Compare keeps all
// descendants of a path contiguous right after it.
type Cache struct {
	entries map[string]cacheEntry
	index   []ir.Path
}

type cacheEntry struct {
	path  ir.Path
	value ir.IRValue
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Get returns the cached value at exactly p.
func (c *Cache) Get(p ir.Path) (ir.IRValue, bool) {
	e, ok := c.entries[p.String()]
	return e.value, ok
}

// Set stores v at p, inserting p into the index when new.
func (c *Cache) Set(p ir.Path, v ir.IRValue) {
	key := p.String()
	if _, ok := c.entries[key]; !ok {
		i, _ := slices.BinarySearchFunc(c.index, p, ir.Path.Compare)
		c.index = slices.Insert(c.index, i, p)
	}
	c.entries[key] = cacheEntry{path: p, value: v}
}

// Delete removes p. It reports whether p was cached.
func (c *Cache) Delete(p ir.Path) bool {
	key := p.String()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	if i, found := slices.BinarySearchFunc(c.index, p, ir.Path.Compare); found {
		c.index = slices.Delete(c.index, i, i+1)
	}
	return true
}

// Ancestor returns the shallowest cached strict ancestor of p.
func (c *Cache) Ancestor(p ir.Path) (ir.Path, bool) {
	for n := 1; n < len(p); n++ {
		if e, ok := c.entries[p[:n].String()]; ok {
			return e.path, true
		}
	}
	return nil, false
}

// Descendants returns the cached strict descendants of p in index order.
func (c *Cache) Descendants(p ir.Path) []ir.Path {
	i, found := slices.BinarySearchFunc(c.index, p, ir.Path.Compare)
	if found {
		i++
	}
	var out []ir.Path
	for ; i < len(c.index) && p.IsAncestorOf(c.index[i]); i++ {
		out = append(out, c.index[i])
	}
	return out
}

// Paths returns every cached path in index order.
func (c *Cache) Paths() []ir.Path {
	return slices.Clone(c.index)
}

// Retain drops every entry for which keep returns false.
func (c *Cache) Retain(keep func(ir.Path) bool) {
	kept := c.index[:0]
	for _, p := range c.index {
		if keep(p) {
			kept = append(kept, p)
			continue
		}
		delete(c.entries, p.String())
	}
	clear(c.index[len(kept):])
	c.index = kept
}

// Snapshot returns the cache contents keyed by path string. Values are
// shared with the cache; callers must not mutate them.
func (c *Cache) Snapshot() ir.IRObject {
	out := make(ir.IRObject, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.value
	}
	return out
}

// Reset drops every entry.
func (c *Cache) Reset() {
	clear(c.entries)
	c.index = nil
}
