package blockpatch

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/blockpatch/cli"
	"github.com/sokinpui/blockpatch/internal/locator"
	"github.com/sokinpui/blockpatch/internal/pipeline"
	"github.com/sokinpui/blockpatch/model"
)

// Options tunes Patch. The zero value uses brace delimiters.
type Options struct {
	Delims locator.Delims
	// Locator overrides the depth-counting locator built from Delims.
	Locator  locator.Locator
	Logger   *zap.Logger
	Progress ProgressUpdate
}

// Patch applies edits to buf in order without touching any file.
// On error the original buf is returned unchanged.
func Patch(buf string, edits []model.Edit, opts Options) (string, []model.Outcome, error) {
	loc := opts.Locator
	if loc == nil {
		delims := opts.Delims
		if delims == (locator.Delims{}) {
			delims = locator.DefaultDelims
		}
		loc = locator.New(delims)
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLocator(loc),
		pipeline.WithLogger(opts.Logger),
	}
	if opts.Progress != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithProgress(opts.Progress))
	}
	return pipeline.New(pipelineOpts...).Run(buf, edits)
}

// Config for using blockpatch as a library.
type Config struct {
	// Delimiter pair such as "{}". Empty uses the plan's, then "{}".
	Delims string
	// Run all edits but leave the target unwritten.
	DryRun bool
	// Record the run so the command line can --revert it.
	History bool
	// Write through Neovim.
	Nvim bool
	// Directories searched for a relative target.
	LookupDirs []string
}

// Apply parses plan (markdown or YAML) and applies it to target.
// It returns the edit labels of each outcome in a map.
func Apply(target, plan string, config Config) (map[string][]string, error) {
	cliCfg := &cli.Config{
		Target:     target,
		Delims:     config.Delims,
		DelimsSet:  config.Delims != "",
		DryRun:     config.DryRun,
		NoHistory:  !config.History,
		Nvim:       config.Nvim,
		LookupDirs: config.LookupDirs,
	}

	app, err := New(cliCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blockpatch app: %w", err)
	}
	defer app.Close()

	parsed, err := app.Plan("", plan)
	if err != nil {
		return nil, err
	}

	summary, err := app.ApplyPlan(parsed)
	result := map[string][]string{
		"Applied":   summary.Applied,
		"Skipped":   summary.Skipped,
		"Unchanged": summary.Unchanged,
		"Failed":    summary.Failed,
	}
	return result, err
}
