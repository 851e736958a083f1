// Package ir provides the value model shared by every other package: the
// sealed JSON-compatible IRValue types, parsed data paths, deep clone and
// structural equality, the Comparator used by the diff engine, and RFC 8785
// canonical JSON for hashing and journaling.
//
// This package imports nothing internal. All other internal packages
// import ir, keeping it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Paths are parsed once into segments; string forms are patch keys only
//   - A nil IRValue means "undefined" and never reaches the host
//   - Clones never alias their source; cached values are never shared
//     with live component data
package ir
