package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokinpui/blockpatch/model"
)

func TestUpdateProgress(t *testing.T) {
	m := New(nil)
	next, _ := m.Update(progressMsg{current: 2, total: 5})
	if view := next.View(); !strings.Contains(view, "Applying edits 2/5") {
		t.Errorf("unexpected view %q", view)
	}
}

func TestRenderSummary(t *testing.T) {
	m := New(nil)
	next, _ := m.Update(summaryMsg{model.Summary{
		Target:  "src/a.ts",
		Applied: []string{"replace-block start() {"},
		Skipped: []string{"insert-after x"},
		Written: true,
	}})
	view := next.View()
	for _, want := range []string{"Applied:", "replace-block start() {", "Skipped:", "Wrote src/a.ts"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRenderError(t *testing.T) {
	m := New(nil)
	next, _ := m.Update(errorMsg{
		summary: model.Summary{Target: "src/a.ts", Failed: []string{"replace-block stop() {"}},
		err:     errors.New("signature not found"),
	})
	view := next.View()
	for _, want := range []string{"Failed:", "left untouched", "signature not found"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if next.(Model).Err() == nil {
		t.Error("expected Err to report the failure")
	}
}

func TestQuitWhileProcessing(t *testing.T) {
	m := New(nil)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !errors.Is(next.(Model).Err(), ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", next.(Model).Err())
	}

	done, _ := m.Update(summaryMsg{model.Summary{Message: "Already up to date."}})
	after, _ := done.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if after.(Model).Err() != nil {
		t.Errorf("quitting after the summary should not fail, got %v", after.(Model).Err())
	}
}
