package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".blockpatch.yaml"

// File holds defaults that flags can override.
type File struct {
	// Delimiters is the open/close pair, e.g. "{}".
	Delimiters string `yaml:"delimiters"`
	// Nvim writes through Neovim instead of the filesystem.
	Nvim bool `yaml:"nvim"`
	// History records runs for --revert / --redo. Defaults to true.
	History *bool `yaml:"history"`
	// Verbose enables debug trace logging.
	Verbose bool `yaml:"verbose"`
	// LookupDirs are searched for relative targets.
	LookupDirs []string `yaml:"lookup_dirs"`
}

// DefaultFile returns the built-in defaults.
func DefaultFile() *File {
	history := true
	return &File{
		Delimiters: "{}",
		History:    &history,
	}
}

// HistoryEnabled reports whether run history should be recorded.
func (f *File) HistoryEnabled() bool {
	return f.History == nil || *f.History
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing file that was asked for explicitly is.
func Load(path string) (*File, error) {
	cfg := DefaultFile()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Delimiters == "" {
		cfg.Delimiters = "{}"
	}
	return cfg, nil
}
