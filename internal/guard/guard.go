// Package guard decides whether an edit is already reflected in a buffer.
package guard

import "strings"

// Present reports whether marker occurs in buf as an exact substring.
// There is no whitespace or semantic normalisation: a marker that was renamed
// or reformatted is not detected. An empty marker is never present.
func Present(buf, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(buf, marker)
}

// Count returns the number of non-overlapping occurrences of marker in buf.
func Count(buf, marker string) int {
	if marker == "" {
		return 0
	}
	return strings.Count(buf, marker)
}
