// Package diff renders a unified diff between the buffer before and after a run.
package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk.
const DefaultContext = 3

// Unified returns a unified diff of before and after labelled with path,
// or "" when they are equal.
func Unified(path, before, after string, context int) (string, error) {
	if before == after {
		return "", nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  context,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("failed to render diff for %s: %w", path, err)
	}
	return text, nil
}
