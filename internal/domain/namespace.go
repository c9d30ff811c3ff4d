package domain

import "strings"

// DefaultNamespace is the text form of the empty namespace path.
const DefaultNamespace = "default"

const (
	namespaceSeparator = '.'
	namespaceEscape    = '\\'
)

// NamespacePath is an ordered sequence of namespace segments. The empty path
// denotes the default namespace.
//
// The text encoding joins segments with "." and escapes a literal "." or "\"
// inside a segment with a backslash. A single segment spelled "default" is
// written as "\default" so it stays distinct from the empty path. Text
// without backslashes therefore decodes exactly like a plain split on ".".
type NamespacePath []string

// ParseNamespace decodes namespace text into a path. "default" maps to the
// empty path. Empty segments (leading, trailing or doubled separators) are
// kept as empty strings.
func ParseNamespace(text string) (NamespacePath, error) {
	if text == DefaultNamespace {
		return NamespacePath{}, nil
	}

	var (
		segments NamespacePath
		current  strings.Builder
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case namespaceEscape:
			if i+1 >= len(text) {
				return nil, ErrInvalidNamespace("namespace %q ends with a dangling escape", text)
			}
			i++
			current.WriteByte(text[i])
		case namespaceSeparator:
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	segments = append(segments, current.String())
	return segments, nil
}

// MustParseNamespace is ParseNamespace for literals known to be valid.
func MustParseNamespace(text string) NamespacePath {
	p, err := ParseNamespace(text)
	if err != nil {
		panic(err)
	}
	return p
}

// String encodes the path. It is the exact inverse of ParseNamespace.
func (p NamespacePath) String() string {
	if len(p) == 0 {
		return DefaultNamespace
	}
	if len(p) == 1 && p[0] == DefaultNamespace {
		return string(namespaceEscape) + DefaultNamespace
	}

	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte(namespaceSeparator)
		}
		for j := 0; j < len(seg); j++ {
			if seg[j] == namespaceSeparator || seg[j] == namespaceEscape {
				b.WriteByte(namespaceEscape)
			}
			b.WriteByte(seg[j])
		}
	}
	return b.String()
}

// IsDefault reports whether the path is the default namespace.
func (p NamespacePath) IsDefault() bool { return len(p) == 0 }

// Equal reports whether two paths have the same segments.
func (p NamespacePath) Equal(other NamespacePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Child returns a new path with name appended.
func (p NamespacePath) Child(name string) NamespacePath {
	out := make(NamespacePath, 0, len(p)+1)
	out = append(out, p...)
	return append(out, name)
}
