package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either an object member key or a
// sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySeg creates an object member segment.
func KeySeg(key string) Segment { return Segment{Key: key} }

// IndexSeg creates a sequence index segment.
func IndexSeg(i int) Segment { return Segment{Index: i, IsIndex: true} }

// String renders the segment as it appears after a parent path:
// ".key" for members and "[i]" for indexes.
func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return "." + s.Key
}

// compare orders index segments before key segments, then by value.
func (s Segment) compare(o Segment) int {
	switch {
	case s.IsIndex && !o.IsIndex:
		return -1
	case !s.IsIndex && o.IsIndex:
		return 1
	case s.IsIndex:
		return s.Index - o.Index
	default:
		return strings.Compare(s.Key, o.Key)
	}
}

// Path is a parsed data path such as "list[0].title". Paths are parsed once
// and compared structurally; the string form is only used as a patch key.
type Path []Segment

// ParsePath parses a dotted/bracket path. The first segment must be a key.
//
//	ParsePath("a.b[2].c") // [a b [2] c]
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}

	var p Path
	i := 0
	expectKey := true
	for i < len(s) {
		switch s[i] {
		case '.':
			if expectKey {
				return nil, fmt.Errorf("path %q: empty key at offset %d", s, i)
			}
			expectKey = true
			i++
		case '[':
			if len(p) == 0 {
				return nil, fmt.Errorf("path %q: must start with a key", s)
			}
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q: unterminated index at offset %d", s, i)
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("path %q: invalid index %q", s, s[i+1:i+end])
			}
			p = append(p, IndexSeg(n))
			i += end + 1
			expectKey = false
		default:
			if !expectKey {
				return nil, fmt.Errorf("path %q: unexpected character %q at offset %d", s, s[i], i)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			p = append(p, KeySeg(s[i:j]))
			i = j
			expectKey = false
		}
	}
	if expectKey {
		return nil, fmt.Errorf("path %q: trailing separator", s)
	}
	return p, nil
}

// MustParsePath is ParsePath for literals known to be valid.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String formats the path in dotted/bracket form.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i == 0 && !seg.IsIndex {
			b.WriteString(seg.Key)
			continue
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

// FirstKey returns the top-level key of the path, or "" for an empty path.
func (p Path) FirstKey() string {
	if len(p) == 0 || p[0].IsIndex {
		return ""
	}
	return p[0].Key
}

// Equal reports whether two paths have the same segments.
func (p Path) Equal(o Path) bool {
	return p.Compare(o) == 0
}

// IsAncestorOf reports whether o lies strictly below p.
func (p Path) IsAncestorOf(o Path) bool {
	if len(p) >= len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Rel returns the segments of descendant d below p, or nil when d is not a
// strict descendant of p.
func (p Path) Rel(d Path) Path {
	if !p.IsAncestorOf(d) {
		return nil
	}
	return d[len(p):]
}

// Compare orders paths segment-wise. A path sorts before every path it is an
// ancestor of, and all descendants of a path are contiguous right after it.
func (p Path) Compare(o Path) int {
	n := min(len(p), len(o))
	for i := 0; i < n; i++ {
		if c := p[i].compare(o[i]); c != 0 {
			return c
		}
	}
	return len(p) - len(o)
}

// Suffix renders segments as they appear appended to a parent path, used
// for field-level diff keys (".x", "[2].y").
func (p Path) Suffix() string {
	var b strings.Builder
	for _, seg := range p {
		b.WriteString(seg.String())
	}
	return b.String()
}
