// Package patch computes the minimal flat patch a render host must apply.
//
// A patch is an ir.IRObject whose keys are fully-qualified path strings
// ("a", "a.b", "list[0].title") and whose values are JSON-compatible
// clones. The host only supports "set" operations, so the package works
// out which subset of a component's current data differs from what the
// host was last sent.
//
// Components:
//   - Cache: the PathCache, path -> last-delivered clone, with a sorted
//     index for ancestor/descendant lookup
//   - Differ: loose (exact path, per-round GC) and strict (containment
//     aware, field-level fan-out, host-baseline fallback) strategies
//   - Override: the force-update buffer, merged over one flush and cleared
//   - Preprocess: de-duplicates render data collected by a render function
//
// Nothing in this package is safe for concurrent use; each instance owns
// its Differ and drives it from the loop goroutine.
package patch
