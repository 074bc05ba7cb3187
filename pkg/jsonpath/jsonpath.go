// Package jsonpath resolves the restricted JSON path dialect used by API
// schema documents: "$" followed by dot-separated property names, where any
// segment may carry a "[*]" wildcard over array elements
// (e.g. "$.performanceLevels[*].performanceLevelDescriptor").
//
// Paths resolve against parsed JSON trees (map[string]any / []any) and
// support in-place mutation through the visitor, which is what the coercion
// and stripping pipeline steps need.
package jsonpath

import (
	"fmt"
	"strings"
)

// segment is one dot-separated component of a path.
type segment struct {
	name     string
	wildcard bool
}

// Path is a parsed JSON path. The zero value resolves nothing.
type Path struct {
	raw      string
	segments []segment
}

// Parse parses a path of the form "$.a.b[*].c".
func Parse(s string) (Path, error) {
	if s == "$" {
		return Path{raw: s}, nil
	}
	if !strings.HasPrefix(s, "$.") {
		return Path{}, fmt.Errorf("path must start with \"$.\": %q", s)
	}
	parts := strings.Split(s[2:], ".")
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("empty segment in path %q", s)
		}
		seg := segment{name: part}
		if strings.HasSuffix(part, "[*]") {
			seg.name = strings.TrimSuffix(part, "[*]")
			seg.wildcard = true
		}
		if strings.ContainsAny(seg.name, "[]") {
			return Path{}, fmt.Errorf("unsupported segment %q in path %q", part, s)
		}
		segments = append(segments, seg)
	}
	return Path{raw: s, segments: segments}, nil
}

// MustParse is Parse that panics on error, for paths known valid at
// construction time (schema builders, tests).
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original path text.
func (p Path) String() string { return p.raw }

// IsZero reports whether the path is unparsed.
func (p Path) IsZero() bool { return p.raw == "" }

// LeafName returns the final property name of the path, or "" for "$".
func (p Path) LeafName() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1].name
}

// RootName returns the first property name of the path, or "" for "$".
func (p Path) RootName() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0].name
}

// Resolve returns every value the path matches in doc, in document order.
// Absent properties match nothing; they are never an error.
func (p Path) Resolve(doc any) []any {
	var out []any
	p.VisitLeaves(doc, func(parent map[string]any, key string, value any) {
		out = append(out, value)
	})
	return out
}

// ResolveStrings resolves the path and renders each scalar match as a
// string. Non-scalar matches are skipped.
func (p Path) ResolveStrings(doc any) []string {
	var out []string
	for _, v := range p.Resolve(doc) {
		switch vv := v.(type) {
		case string:
			out = append(out, vv)
		case nil:
			continue
		case map[string]any, []any:
			continue
		default:
			out = append(out, fmt.Sprintf("%v", vv))
		}
	}
	return out
}

// Located is one resolved match together with the concrete path to it,
// wildcard segments rendered with the matched array index.
type Located struct {
	Path  string
	Value any
}

// ResolveLocated returns every value the path matches along with its
// concrete path text (e.g. "$.a[0].b" for base path "$.a[*].b"), in
// document order.
func (p Path) ResolveLocated(doc any) []Located {
	if len(p.segments) == 0 {
		return nil
	}
	var out []Located
	locate(doc, "$", p.segments, &out)
	return out
}

func locate(node any, prefix string, segs []segment, out *[]Located) {
	obj, ok := node.(map[string]any)
	if !ok {
		return
	}
	seg := segs[0]
	value, present := obj[seg.name]
	if !present {
		return
	}
	if seg.wildcard {
		arr, ok := value.([]any)
		if !ok {
			return
		}
		for i, item := range arr {
			itemPath := fmt.Sprintf("%s.%s[%d]", prefix, seg.name, i)
			if len(segs) == 1 {
				*out = append(*out, Located{Path: itemPath, Value: item})
				continue
			}
			locate(item, itemPath, segs[1:], out)
		}
		return
	}
	if len(segs) == 1 {
		*out = append(*out, Located{Path: prefix + "." + seg.name, Value: value})
		return
	}
	locate(value, prefix+"."+seg.name, segs[1:], out)
}

// VisitLeaves walks doc and invokes fn once per matched leaf with the
// object that owns it, the property name, and the current value. Writing
// parent[key] mutates the document in place.
func (p Path) VisitLeaves(doc any, fn func(parent map[string]any, key string, value any)) {
	if len(p.segments) == 0 {
		return
	}
	visit(doc, p.segments, fn)
}

func visit(node any, segs []segment, fn func(parent map[string]any, key string, value any)) {
	obj, ok := node.(map[string]any)
	if !ok {
		return
	}
	seg := segs[0]
	value, present := obj[seg.name]
	if !present {
		return
	}
	if seg.wildcard {
		arr, ok := value.([]any)
		if !ok {
			return
		}
		for _, item := range arr {
			if len(segs) == 1 {
				// Wildcard leaf: array items have no owning property, so
				// they cannot be visited for mutation.
				continue
			}
			visit(item, segs[1:], fn)
		}
		return
	}
	if len(segs) == 1 {
		fn(obj, seg.name, value)
		return
	}
	visit(value, segs[1:], fn)
}
