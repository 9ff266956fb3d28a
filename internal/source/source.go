package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/blockpatch/internal/ui"
)

// SourceProvider determines and retrieves the plan content.
type SourceProvider struct {
	planPath string
	stdin    *os.File
}

// New creates a new SourceProvider. An empty planPath means stdin or clipboard.
func New(planPath string) *SourceProvider {
	return &SourceProvider{planPath: planPath, stdin: os.Stdin}
}

// Name returns the plan file name, used to pick the plan format.
func (sp *SourceProvider) Name() string {
	return sp.planPath
}

// GetContent retrieves the plan from the plan file, stdin (if piped) or the
// clipboard, in that order.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.planPath != "" {
		ui.Header("--- Reading plan from %s ---", sp.planPath)
		content, err := os.ReadFile(sp.planPath)
		if err != nil {
			return "", fmt.Errorf("failed to read plan: %w", err)
		}
		return string(content), nil
	}

	stat, err := sp.stdin.Stat()
	isPiped := err == nil && (stat.Mode()&os.ModeCharDevice) == 0

	if isPiped {
		ui.Header("--- Reading plan from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading plan from clipboard ---")
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. Nothing to process.")
		return "", nil
	}
	return content, nil
}
