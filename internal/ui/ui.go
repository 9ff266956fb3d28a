package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	FaintColor   = color.New(color.Faint)
)

// Output is where all console reporting goes.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

// --- Summaries ---

func printList(c *color.Color, title string, items []string) {
	if len(items) == 0 {
		return
	}
	c.Fprintf(Output, title+"\n", len(items))
	for _, item := range items {
		fmt.Fprintf(Output, "  - %s\n", item)
	}
}

// PrintPatchSummary reports what happened to each edit of a run.
func PrintPatchSummary(target string, applied, skipped, unchanged, failed []string, written bool) {
	Header("\n--- Patch Summary: %s ---", target)

	if len(applied) == 0 && len(skipped) == 0 && len(unchanged) == 0 && len(failed) == 0 {
		Info("No edits were processed.")
		return
	}

	printList(SuccessColor, "Applied %d edit(s):", applied)
	printList(InfoColor, "Skipped %d edit(s), already present:", skipped)
	printList(FaintColor, "%d block(s) already up to date:", unchanged)
	printList(ErrorColor, "Failed %d edit(s):", failed)

	switch {
	case len(failed) > 0:
		Error("Target left untouched.")
	case written:
		Success("Wrote %s.", target)
	case len(applied) > 0:
		Warning("Changes were not written.")
	}
}

func PrintRevertSummary(reverted, failed []string) {
	Header("\n--- Revert Summary ---")
	printList(SuccessColor, "Successfully reverted %d file(s):", reverted)
	printList(ErrorColor, "Failed to revert %d file(s):", failed)
}

func PrintRedoSummary(redone, failed []string) {
	Header("\n--- Redo Summary ---")
	printList(SuccessColor, "Successfully redid %d file(s):", redone)
	printList(ErrorColor, "Failed to redo %d file(s):", failed)
}
