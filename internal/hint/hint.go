// Package hint finds near misses for signatures that were not found verbatim.
// It only feeds error messages; it never changes what the locator matches.
package hint

import "strings"

// Suggestion is a buffer line that matches a signature once whitespace is
// normalised.
type Suggestion struct {
	Line int // 1-based
	Text string
}

// normalizeLineForMatching trims whitespace and collapses internal runs of
// whitespace to a single space.
func normalizeLineForMatching(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// Suggest looks for the first place where the signature's lines match the
// buffer's lines after whitespace normalisation and ignoring blank lines.
// The last signature line only needs to be a prefix of the buffer line, since
// signatures usually stop partway through a declaration.
func Suggest(buf, signature string) (Suggestion, bool) {
	var block []string
	for _, line := range strings.Split(signature, "\n") {
		if n := normalizeLineForMatching(line); n != "" {
			block = append(block, n)
		}
	}
	if len(block) == 0 {
		return Suggestion{}, false
	}

	source := strings.Split(buf, "\n")
	var filteredSource []string
	var originalLineNumbers []int
	for i, line := range source {
		if n := normalizeLineForMatching(line); n != "" {
			filteredSource = append(filteredSource, n)
			originalLineNumbers = append(originalLineNumbers, i+1)
		}
	}

	last := len(block) - 1
	for i := 0; i <= len(filteredSource)-len(block); i++ {
		match := true
		for j := 0; j < last; j++ {
			if filteredSource[i+j] != block[j] {
				match = false
				break
			}
		}
		if match && strings.HasPrefix(filteredSource[i+last], block[last]) {
			n := originalLineNumbers[i]
			return Suggestion{Line: n, Text: source[n-1]}, true
		}
	}
	return Suggestion{}, false
}
