package treepath

import (
	"slices"
	"strings"
)

// Depth returns the number of segments in the canonical form of raw.
// The root has depth 0.
func Depth(raw string) int {
	n := Normalize(raw)
	if n == "" {
		return 0
	}
	return strings.Count(n, Separator) + 1
}

// Parent returns the canonical parent of raw. The parent of a single
// segment path and of the root is the root ("").
func Parent(raw string) string {
	n := Normalize(raw)
	i := strings.LastIndex(n, Separator)
	if i < 0 {
		return ""
	}
	return n[:i]
}

// Leaf returns the last segment of raw. ok is false for the root.
func Leaf(raw string) (seg Segment, ok bool) {
	n := Normalize(raw)
	if n == "" {
		return Segment{}, false
	}
	name := n[strings.LastIndex(n, Separator)+1:]
	return Segment{Name: name, Numeric: isDigits(name)}, true
}

// Join appends segments to parent and returns the canonical result.
func Join(parent string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, parent)
	parts = append(parts, segments...)
	return Normalize(strings.Join(parts, Separator))
}

// IsDescendantOf reports whether raw lies strictly below ancestor.
// Every non-root path is a descendant of the root. A path is never its own
// descendant, and "1.10" is not a descendant of "1.1".
func IsDescendantOf(raw, ancestor string) bool {
	p := Normalize(raw)
	a := Normalize(ancestor)
	if p == "" {
		return false
	}
	if a == "" {
		return true
	}
	return strings.HasPrefix(p, a+Separator)
}

// IsChildOf reports whether raw is a direct child of parent.
func IsChildOf(raw, parent string) bool {
	return IsDescendantOf(raw, parent) && Depth(raw) == Depth(parent)+1
}

// Compare orders paths shallower first, then lexicographically by their
// canonical form. It returns -1, 0 or +1.
func Compare(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	da, db := Depth(na), Depth(nb)
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	}
	return strings.Compare(na, nb)
}

// Sort orders paths in place using Compare.
func Sort(paths []string) {
	slices.SortStableFunc(paths, Compare)
}
