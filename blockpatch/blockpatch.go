package blockpatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/sokinpui/blockpatch/cli"
	"github.com/sokinpui/blockpatch/internal/diff"
	"github.com/sokinpui/blockpatch/internal/fs"
	"github.com/sokinpui/blockpatch/internal/locator"
	"github.com/sokinpui/blockpatch/internal/logging"
	"github.com/sokinpui/blockpatch/internal/nvim"
	"github.com/sokinpui/blockpatch/internal/parser"
	"github.com/sokinpui/blockpatch/internal/pipeline"
	"github.com/sokinpui/blockpatch/internal/source"
	"github.com/sokinpui/blockpatch/internal/state"
	"github.com/sokinpui/blockpatch/internal/ui"
	"github.com/sokinpui/blockpatch/model"
)

// ErrNoTarget is returned when neither the command line nor the plan names a file.
var ErrNoTarget = errors.New("no target file given")

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// Writer persists the patched buffer.
type Writer interface {
	WriteFile(path, content string) error
}

type fileWriter struct{}

func (fileWriter) WriteFile(path, content string) error {
	return fs.WriteAtomic(path, content)
}

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	stateManager     *state.Manager
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	logger           *zap.Logger
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:            cfg,
		pathResolver:   fs.NewPathResolver(cfg.LookupDirs),
		sourceProvider: source.New(cfg.PlanPath),
		logger:         logger,
	}, nil
}

// history opens the state manager on first use, so runs that never write
// leave no state directory behind.
func (a *App) history() (*state.Manager, error) {
	if a.stateManager == nil {
		stateManager, err := state.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize state manager: %w", err)
		}
		a.stateManager = stateManager
	}
	return a.stateManager, nil
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Close flushes the trace logger.
func (a *App) Close() {
	_ = a.logger.Sync()
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Revert:
		return a.revertLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	default:
		return a.processPlan()
	}
}

// Plan parses plan content. name is used to detect the format.
func (a *App) Plan(name, content string) (*parser.Plan, error) {
	plan, err := parser.Parse(name, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return plan, nil
}

// processPlan reads the plan from its source and applies it.
func (a *App) processPlan() (model.Summary, error) {
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return model.Summary{}, err
	}
	if content == "" {
		return model.Summary{Message: "Plan is empty. Nothing to process."}, nil
	}

	plan, err := a.Plan(a.sourceProvider.Name(), content)
	if err != nil {
		return model.Summary{}, err
	}
	if len(plan.Edits) == 0 {
		return model.Summary{Message: "Plan has no edits. Nothing to do."}, nil
	}
	return a.ApplyPlan(plan)
}

// ApplyPlan runs every edit of plan against the target in memory and writes
// the result once, only if all edits succeeded.
func (a *App) ApplyPlan(plan *parser.Plan) (model.Summary, error) {
	target := a.cfg.Target
	if target == "" {
		target = plan.Target
	}
	if target == "" {
		return model.Summary{}, ErrNoTarget
	}

	delims, err := a.delims(plan)
	if err != nil {
		return model.Summary{}, err
	}

	path, err := a.pathResolver.Resolve(target)
	if err != nil {
		return model.Summary{}, err
	}
	before, err := fs.ReadText(path)
	if err != nil {
		return model.Summary{}, err
	}

	opts := Options{Delims: delims, Logger: a.logger}
	if a.progressCallback != nil {
		a.progressCallback(0, len(plan.Edits))
		opts.Progress = a.progressCallback
	}

	summary := model.Summary{Target: path}
	after, outcomes, err := Patch(before, plan.Edits, opts)
	summarize(&summary, outcomes)
	if err != nil {
		var editErr *pipeline.EditError
		if errors.As(err, &editErr) {
			summary.Failed = append(summary.Failed, editErr.Edit.Label())
		}
		a.relativizeSummaryPaths(&summary)
		return summary, err
	}

	if a.cfg.Diff || a.cfg.DryRun {
		summary.Diff, err = diff.Unified(a.relativize(path), before, after, diff.DefaultContext)
		if err != nil {
			return summary, err
		}
	}

	switch {
	case after == before:
		summary.Message = "Already up to date."
	case a.cfg.DryRun:
		summary.Message = "Dry run: target not written."
	default:
		if err := a.write(path, after); err != nil {
			return summary, err
		}
		summary.Written = true
		if !a.cfg.NoHistory {
			a.record(path, before, after)
		}
	}

	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// delims picks the delimiter pair: command line, then plan, then config.
func (a *App) delims(plan *parser.Plan) (locator.Delims, error) {
	pair := a.cfg.Delims
	if !a.cfg.DelimsSet && plan.Delimiters != "" {
		pair = plan.Delimiters
	}
	if pair == "" {
		return locator.DefaultDelims, nil
	}
	return locator.ParseDelims(pair)
}

func (a *App) write(path, content string) error {
	var w Writer = fileWriter{}
	if a.cfg.Nvim {
		manager, err := nvim.New()
		if err != nil {
			return err
		}
		defer manager.Close()
		w = manager
	}
	if err := w.WriteFile(path, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (a *App) record(path, before, after string) {
	stateManager, err := a.history()
	if err == nil {
		err = stateManager.Record(path, before, after)
	}
	if err != nil {
		ui.Warning("Patched %s but could not record history: %v", path, err)
	}
}

func summarize(summary *model.Summary, outcomes []model.Outcome) {
	for _, o := range outcomes {
		label := o.Edit.Label()
		switch o.Result {
		case model.ResultApplied:
			summary.Applied = append(summary.Applied, label)
		case model.ResultSkipped:
			summary.Skipped = append(summary.Skipped, label)
		case model.ResultUnchanged:
			summary.Unchanged = append(summary.Unchanged, label)
		}
	}
}

// revertLastOperation handles the revert logic.
func (a *App) revertLastOperation() (model.Summary, error) {
	stateManager, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	reverted, failed, err := stateManager.Revert()
	if errors.Is(err, state.ErrNothingToRevert) {
		return model.Summary{Message: "No operation to revert."}, nil
	}
	summary := model.Summary{
		Applied: reverted,
		Failed:  failed,
		Message: "Reverted last run.",
	}
	if len(failed) > 0 {
		summary.Message = "Revert refused: file changed since the run."
	}
	a.relativizeSummaryPaths(&summary)
	return summary, err
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	stateManager, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	redone, failed, err := stateManager.Redo()
	if errors.Is(err, state.ErrNothingToRedo) {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	summary := model.Summary{
		Applied: redone,
		Failed:  failed,
		Message: "Redid last reverted run.",
	}
	if len(failed) > 0 {
		summary.Message = "Redo refused: file changed since the revert."
	}
	a.relativizeSummaryPaths(&summary)
	return summary, err
}

// relativize converts an absolute path to one relative to the working
// directory for cleaner display.
func (a *App) relativize(p string) string {
	wd, err := os.Getwd()
	if err != nil || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil {
		return p
	}
	return rel
}

func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	if summary.Target != "" {
		summary.Target = a.relativize(summary.Target)
	}
	if a.cfg.Revert || a.cfg.Redo {
		for i, p := range summary.Applied {
			summary.Applied[i] = a.relativize(p)
		}
		for i, p := range summary.Failed {
			summary.Failed[i] = a.relativize(p)
		}
	}
}
