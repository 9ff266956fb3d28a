package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/sokinpui/blockpatch/internal/config"
)

// Config holds all the command-line flag values, merged over the config file.
type Config struct {
	Target     string
	PlanPath   string
	ConfigPath string
	Delims     string
	DelimsSet  bool // Delims came from the command line
	LookupDirs []string
	DryRun     bool
	Diff       bool
	Nvim       bool
	NoHistory  bool
	Revert     bool
	Redo       bool
	NoTUI      bool
	Verbose    bool
}

// ErrHelp is returned when usage was requested.
var ErrHelp = pflag.ErrHelp

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args as if they were the command line.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("blockpatch", pflag.ContinueOnError)
	// Parse errors are returned to the caller, usage still goes to stderr.
	flags.SetOutput(io.Discard)

	flags.StringVarP(&cfg.PlanPath, "plan", "p", "", "Read the edit plan from this file (default: stdin if piped, else clipboard).")
	flags.StringVarP(&cfg.ConfigPath, "config", "c", "", "Config file (default: "+config.DefaultPath+" if present).")
	flags.StringVarP(&cfg.Delims, "delims", "d", "", "Block delimiter pair, e.g. '{}' or '()'.")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", []string{}, "Directories to look for the target in (default: current directory).")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Run every edit and print the diff, but do not write the target.")
	flags.BoolVar(&cfg.Diff, "diff", false, "Print a unified diff of the change.")
	flags.BoolVar(&cfg.Nvim, "nvim", false, "Write through Neovim so open buffers pick up the change.")
	flags.BoolVar(&cfg.NoHistory, "no-history", false, "Do not record this run for --revert.")
	flags.BoolVar(&cfg.NoTUI, "no-tui", false, "Disable the spinner and print plain output.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log each edit in detail.")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Revert, "revert", "r", false, "Revert the last run.")
	flags.BoolVarP(&cfg.Redo, "redo", "R", false, "Redo the last reverted run.")

	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: blockpatch [flags] [TARGET]")
		fmt.Fprintln(os.Stderr, "\nApply a plan of block replacements and guarded insertions to one source file.")
		fmt.Fprintln(os.Stderr, "The file is written once, only if every edit succeeds.")
		fmt.Fprintln(os.Stderr, "\nExample: blockpatch -p patch.md server/services/streamService.ts")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Validate mutually exclusive flags
	if cfg.Revert && cfg.Redo {
		return nil, errors.New("error: --revert and --redo are mutually exclusive")
	}
	if flags.NArg() > 1 {
		return nil, fmt.Errorf("error: expected at most one target, got %d", flags.NArg())
	}
	cfg.Target = flags.Arg(0)

	file, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.merge(file, flags)
	return cfg, nil
}

// merge fills in values from the config file for flags that were not set.
func (c *Config) merge(file *config.File, flags *pflag.FlagSet) {
	c.DelimsSet = flags.Changed("delims")
	if !c.DelimsSet {
		c.Delims = file.Delimiters
	}
	if !flags.Changed("nvim") {
		c.Nvim = file.Nvim
	}
	if !flags.Changed("verbose") {
		c.Verbose = file.Verbose
	}
	if !flags.Changed("no-history") {
		c.NoHistory = !file.HistoryEnabled()
	}
	if !flags.Changed("lookup-dir") {
		c.LookupDirs = file.LookupDirs
	}
}
