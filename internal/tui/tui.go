package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/blockpatch/blockpatch"
	"github.com/sokinpui/blockpatch/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	pathStyle    = lipgloss.NewStyle()
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// --- Messages ---
type summaryMsg struct {
	model.Summary
}

type errorMsg struct {
	summary model.Summary
	err     error
}

func (e errorMsg) Error() string { return e.err.Error() }

// ErrInterrupted is reported when the user quits before the run finishes.
var ErrInterrupted = errors.New("interrupted before the run finished")

type progressMsg struct {
	current, total int
}

// Progress returns a callback that forwards edit progress to p.
func Progress(p *tea.Program) blockpatch.ProgressUpdate {
	return func(current, total int) {
		p.Send(progressMsg{current: current, total: total})
	}
}

// --- Model ---
type Model struct {
	app      *blockpatch.App
	spinner  spinner.Model
	state    state
	summary  model.Summary
	progress progressMsg
	err      error
}

type state int

const (
	stateProcessing state = iota
	stateSummary
	stateError
)

func New(app *blockpatch.App) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     app,
		spinner: s,
		state:   stateProcessing,
	}
}

// Err returns the error the run ended with, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runApp)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.state == stateProcessing {
				m.state = stateError
				m.err = ErrInterrupted
			}
			return m, tea.Quit
		}

	case progressMsg:
		m.progress = msg
		return m, nil

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg.Summary
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		if m.progress.total > 0 {
			return fmt.Sprintf("%s Applying edits %d/%d", m.spinner.View(), m.progress.current, m.progress.total)
		}
		return fmt.Sprintf("%s Processing...", m.spinner.View())
	case stateError:
		return m.renderSummary() + errorStyle.Render("Error: ", m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func writeSection(b *strings.Builder, style lipgloss.Style, title string, items []string) bool {
	if len(items) == 0 {
		return false
	}
	b.WriteString(style.Render(title))
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString(fmt.Sprintf("  %s\n", pathStyle.Render(item)))
	}
	return true
}

func (m *Model) renderSummary() string {
	var b strings.Builder

	if m.summary.Target != "" {
		b.WriteString(headerStyle.Render("Target: "))
		b.WriteString(pathStyle.Render(m.summary.Target))
		b.WriteString("\n")
	}
	if m.summary.Message != "" {
		b.WriteString(headerStyle.Render(m.summary.Message))
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}

	hasContent := false
	hasContent = writeSection(&b, successStyle, "Applied:", m.summary.Applied) || hasContent
	hasContent = writeSection(&b, faintStyle, "Skipped:", m.summary.Skipped) || hasContent
	hasContent = writeSection(&b, faintStyle, "Unchanged:", m.summary.Unchanged) || hasContent
	hasContent = writeSection(&b, errorStyle, "Failed:", m.summary.Failed) || hasContent

	if m.summary.Written {
		b.WriteString(successStyle.Render("Wrote " + m.summary.Target))
		b.WriteString("\n")
	} else if len(m.summary.Failed) > 0 && m.summary.Target != "" {
		b.WriteString(warningStyle.Render(m.summary.Target + " left untouched."))
		b.WriteString("\n")
	}

	if m.summary.Diff != "" {
		b.WriteString("\n")
		b.WriteString(m.summary.Diff)
	}

	if !hasContent && m.summary.Message == "" && m.err == nil {
		b.WriteString(faintStyle.Render("Nothing to do."))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) runApp() tea.Msg {
	summary, err := m.app.Execute()
	if err != nil {
		// Check for detailed error to print stack
		var detailed *blockpatch.DetailedError
		if errors.As(err, &detailed) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		return errorMsg{summary: summary, err: err}
	}
	return summaryMsg{
		Summary: summary,
	}
}
