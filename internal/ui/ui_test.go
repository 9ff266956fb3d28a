package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old, oldNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() {
		Output, color.NoColor = old, oldNoColor
	})
	return &buf
}

func TestPrintPatchSummary(t *testing.T) {
	buf := capture(t)
	PrintPatchSummary("a.ts", []string{"start"}, []string{"field"}, nil, nil, true)

	out := buf.String()
	for _, want := range []string{"Patch Summary: a.ts", "Applied 1 edit(s):", "  - start", "Skipped 1 edit(s)", "Wrote a.ts."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPatchSummaryFailed(t *testing.T) {
	buf := capture(t)
	PrintPatchSummary("a.ts", nil, nil, nil, []string{"start"}, false)
	if !strings.Contains(buf.String(), "Target left untouched.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
