package ir

import "strings"

// Path segments appended when traversing from a collection into its elements
// and into the index (key) of a map collection.
const (
	ElementSegment = "<elements>"
	IndexSegment   = "<index>"
)

// PropertyPath is the dotted address of a node in the persistent object graph,
// e.g. "[Order.lineItems].product".
//
// PropertyPath is a value type. Append returns a new path and never mutates
// the receiver, so paths can be shared freely between references and used as
// map keys.
type PropertyPath struct {
	// full holds the canonical rendering; segments are recovered on demand.
	// Keeping the rendering (not a slice) makes the type comparable.
	full string
}

// RootPath returns the empty path.
func RootPath() PropertyPath {
	return PropertyPath{}
}

// CollectionRootPath returns the path of a collection loaded directly as a
// plan root, rendered as "[role]".
func CollectionRootPath(role string) PropertyPath {
	return RootPath().Append(RoleSegment(role))
}

// RoleSegment renders a collection role as a bracketed path segment.
func RoleSegment(role string) string {
	return "[" + role + "]"
}

// Append returns a new path with segment added.
func (p PropertyPath) Append(segment string) PropertyPath {
	if p.full == "" {
		return PropertyPath{full: segment}
	}
	return PropertyPath{full: p.full + "." + segment}
}

// IsRoot reports whether p is the empty path.
func (p PropertyPath) IsRoot() bool {
	return p.full == ""
}

// Depth returns the number of segments in the path.
func (p PropertyPath) Depth() int {
	return len(p.Segments())
}

// Segments returns a copy of the path's segments.
//
// Bracketed role segments may contain dots ("[Order.lineItems]"); they are
// kept whole.
func (p PropertyPath) Segments() []string {
	if p.full == "" {
		return nil
	}
	var segs []string
	start, brackets := 0, 0
	for i := 0; i < len(p.full); i++ {
		switch p.full[i] {
		case '[':
			brackets++
		case ']':
			brackets--
		case '.':
			if brackets == 0 {
				segs = append(segs, p.full[start:i])
				start = i + 1
			}
		}
	}
	return append(segs, p.full[start:])
}

// Last returns the final segment, or "" for the root path.
func (p PropertyPath) Last() string {
	segs := p.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// String renders the path as dot-joined segments. The root path renders as "".
func (p PropertyPath) String() string {
	return p.full
}

// ParsePropertyPath rebuilds a path from its rendering. It is the inverse of
// String and is used for override keys supplied as text.
func ParsePropertyPath(s string) PropertyPath {
	return PropertyPath{full: strings.TrimSpace(s)}
}

// MarshalText implements encoding.TextMarshaler so paths serialize as strings.
func (p PropertyPath) MarshalText() ([]byte, error) {
	return []byte(p.full), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PropertyPath) UnmarshalText(text []byte) error {
	*p = ParsePropertyPath(string(text))
	return nil
}
