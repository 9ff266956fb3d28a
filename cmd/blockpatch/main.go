package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/sokinpui/blockpatch/blockpatch"
	"github.com/sokinpui/blockpatch/cli"
	"github.com/sokinpui/blockpatch/internal/tui"
	"github.com/sokinpui/blockpatch/internal/ui"
	"github.com/sokinpui/blockpatch/model"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	app, err := blockpatch.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// The diff goes to stdout, so those runs skip the TUI.
	if cfg.NoTUI || cfg.DryRun || cfg.Diff || !isatty.IsTerminal(os.Stderr.Fd()) {
		if err := runPlain(app, cfg); err != nil {
			app.Close()
			os.Exit(1)
		}
		return
	}

	var opts []tea.ProgramOption
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		// The plan is being piped in.
		opts = append(opts, tea.WithInput(nil))
	}
	p := tea.NewProgram(tui.New(app), opts...)
	app.SetProgressCallback(tui.Progress(p))

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		app.Close()
		os.Exit(1)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		app.Close()
		os.Exit(1)
	}
}

func runPlain(app *blockpatch.App, cfg *cli.Config) error {
	summary, err := app.Execute()
	report(cfg, summary)
	if err != nil {
		var detailed *blockpatch.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		ui.Error("Error: %v", err)
	}
	return err
}

func report(cfg *cli.Config, summary model.Summary) {
	switch {
	case cfg.Revert:
		ui.PrintRevertSummary(summary.Applied, summary.Failed)
	case cfg.Redo:
		ui.PrintRedoSummary(summary.Applied, summary.Failed)
	case summary.Target != "":
		ui.PrintPatchSummary(summary.Target, summary.Applied, summary.Skipped, summary.Unchanged, summary.Failed, summary.Written)
	}
	if summary.Message != "" {
		ui.Info("%s", summary.Message)
	}
	if summary.Diff != "" {
		fmt.Print(summary.Diff)
	}
}
