// Package treepath implements the path grammar used to address nodes in a
// provider tree.
//
// A path is a dot-separated sequence of segments. Each segment is either
// numeric (the child number, e.g. "0.1.2") or an identifier (the child's
// display name, e.g. "Device.Audio.Gain"). Both notations may be mixed
// within one path ("0.Audio.2"). The empty string addresses the tree root.
//
// Parse and Normalize are total: they accept any input. Validate is the
// single source of truth for whether a path may be used to address a node.
package treepath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins path segments.
const Separator = "."

// reservedChars may never appear inside a segment.
const reservedChars = "/\\:*?\"<>|\n\r"

// Path errors.
var (
	ErrInvalidPath = errors.New("invalid path")
	ErrEmptyPath   = errors.New("empty path")
)

// ValidationError describes why a raw path string was rejected.
type ValidationError struct {
	Raw    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Raw, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidPath.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidPath
}

// Segment is one level of a path.
type Segment struct {
	// Name is the segment text as written.
	Name string

	// Numeric is true if Name consists of ASCII digits only.
	Numeric bool
}

// Int returns the segment as a child number.
// ok is false for identifier segments and for numbers that overflow int.
func (s Segment) Int() (n int, ok bool) {
	if !s.Numeric {
		return 0, false
	}
	v, err := strconv.Atoi(s.Name)
	if err != nil {
		return 0, false
	}
	return v, true
}

// String returns the segment text.
func (s Segment) String() string {
	return s.Name
}

// Path is an immutable, parsed path. The zero value is the root.
type Path struct {
	raw  string
	segs []Segment
}

// Root is the path of the tree root.
var Root = Path{}

// Parse splits raw on "." and classifies each segment. It never fails;
// malformed input still parses and must be checked with Validate.
func Parse(raw string) Path {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Path{raw: raw}
	}

	parts := strings.Split(trimmed, Separator)
	segs := make([]Segment, len(parts))
	for i, part := range parts {
		segs[i] = Segment{Name: part, Numeric: isDigits(part)}
	}
	return Path{raw: raw, segs: segs}
}

// Raw returns the string the path was parsed from.
func (p Path) Raw() string {
	return p.raw
}

// String returns the canonical form of the path.
func (p Path) String() string {
	return Normalize(p.join())
}

// Segments returns a copy of the path's segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segs))
	copy(out, p.segs)
	return out
}

// Len returns the number of segments as written.
func (p Path) Len() int {
	return len(p.segs)
}

// IsRoot reports whether the path addresses the tree root.
func (p Path) IsRoot() bool {
	return p.String() == ""
}

// IsNumeric reports whether every segment is numeric.
// The root is not numeric.
func (p Path) IsNumeric() bool {
	if len(p.segs) == 0 {
		return false
	}
	for _, s := range p.segs {
		if !s.Numeric {
			return false
		}
	}
	return true
}

// Equal compares two paths on their canonical form.
func (p Path) Equal(other Path) bool {
	return p.String() == other.String()
}

// Validate checks the path the same way the package-level Validate does.
func (p Path) Validate() error {
	return Validate(p.raw)
}

func (p Path) join() string {
	names := make([]string, len(p.segs))
	for i, s := range p.segs {
		names[i] = s.Name
	}
	return strings.Join(names, Separator)
}

// Validate reports whether raw may be used to address a node.
//
// Empty and whitespace-only input is valid and addresses the root.
// Reserved characters, leading or trailing dots, and empty segments are
// rejected. Any other run of characters is accepted as an identifier, so
// names with spaces or punctuation remain addressable.
func Validate(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if i := strings.IndexAny(trimmed, reservedChars); i >= 0 {
		return &ValidationError{Raw: raw, Reason: fmt.Sprintf("reserved character %q", trimmed[i])}
	}
	if strings.HasPrefix(trimmed, Separator) {
		return &ValidationError{Raw: raw, Reason: "leading dot"}
	}
	if strings.HasSuffix(trimmed, Separator) {
		return &ValidationError{Raw: raw, Reason: "trailing dot"}
	}
	if strings.Contains(trimmed, Separator+Separator) {
		return &ValidationError{Raw: raw, Reason: "consecutive dots"}
	}

	for i, part := range strings.Split(trimmed, Separator) {
		if strings.TrimSpace(part) == "" {
			return &ValidationError{Raw: raw, Reason: fmt.Sprintf("empty segment at position %d", i)}
		}
	}
	return nil
}

// Valid is shorthand for Validate(raw) == nil.
func Valid(raw string) bool {
	return Validate(raw) == nil
}

// ValidateAddressable validates raw and additionally rejects the root,
// which can be browsed but not read, written or subscribed to.
func ValidateAddressable(raw string) error {
	if err := Validate(raw); err != nil {
		return err
	}
	if Normalize(raw) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPath, ErrEmptyPath)
	}
	return nil
}

// Normalize trims the path and each segment, drops empty segments and
// joins the rest with ".". It is idempotent.
func Normalize(raw string) string {
	parts := strings.Split(raw, Separator)
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, Separator)
}

// IsNumeric reports whether every segment of raw is digits only.
func IsNumeric(raw string) bool {
	return Parse(Normalize(raw)).IsNumeric()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
