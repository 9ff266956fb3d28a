package state

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sokinpui/blockpatch/internal/fs"
)

const (
	stateDirName  = ".blockpatch"
	stateFileName = "state"
	SnapshotDir   = "snapshots"
)

const actionPatch = "patch"

// Operation records one completed patch of one file.
type Operation struct {
	Path       string
	Action     string
	BeforeHash string // content hash before the run
	AfterHash  string // content hash after the run
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file and its snapshots.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the enclosing git
// repository, or the working directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager rooted at rootDir.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, SnapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	// First block is current index
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	m.state.CurrentIndex = index

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}

		entry := HistoryEntry{Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%4 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record")
		}
		for i := 0; i < len(opLines); i += 4 {
			entry.Operations = append(entry.Operations, Operation{
				Action:     opLines[i],
				Path:       opLines[i+1],
				BeforeHash: opLines[i+2],
				AfterHash:  opLines[i+3],
			})
		}
		m.state.History = append(m.state.History, entry)
	}

	if m.state.CurrentIndex >= len(m.state.History) {
		return fmt.Errorf("invalid state file: index %d out of range", m.state.CurrentIndex)
	}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		var entryBuilder strings.Builder
		entryBuilder.WriteString(strconv.FormatInt(entry.Timestamp, 10))
		for _, op := range entry.Operations {
			entryBuilder.WriteString("\n" + strings.Join([]string{op.Action, op.Path, op.BeforeHash, op.AfterHash}, "\n"))
		}
		blocks = append(blocks, entryBuilder.String())
	}

	content := strings.Join(blocks, "\n\n") + "\n"
	if err := fs.WriteAtomic(m.statePath, content); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Write adds a new set of operations to the history, discarding any
// reverted entries beyond the current position.
func (m *Manager) Write(operations []Operation) error {
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}

	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: operations,
	})
	m.state.CurrentIndex++
	return m.save()
}

// Record snapshots both versions of a patched file and appends the run to
// the history.
func (m *Manager) Record(path, before, after string) error {
	beforeHash, err := m.Snapshot(before)
	if err != nil {
		return err
	}
	afterHash, err := m.Snapshot(after)
	if err != nil {
		return err
	}
	return m.Write([]Operation{{
		Path:       path,
		Action:     actionPatch,
		BeforeHash: beforeHash,
		AfterHash:  afterHash,
	}})
}

// Snapshot stores content under its hash and returns the hash.
func (m *Manager) Snapshot(content string) (string, error) {
	hash := fs.HashText(content)
	path := m.snapshotPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := fs.WriteAtomic(path, content); err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}
	return hash, nil
}

// LoadSnapshot returns the content stored under hash.
func (m *Manager) LoadSnapshot(hash string) (string, error) {
	return fs.ReadText(m.snapshotPath(hash))
}

func (m *Manager) snapshotPath(hash string) string {
	return filepath.Join(m.StateDir, SnapshotDir, hash)
}

// History returns the recorded entries and the current position.
func (m *Manager) History() ([]HistoryEntry, int) {
	return m.state.History, m.state.CurrentIndex
}

// ErrNothingToRevert and ErrNothingToRedo report an empty history direction.
var (
	ErrNothingToRevert = errors.New("no operation to revert")
	ErrNothingToRedo   = errors.New("no operation to redo")
)

// Revert restores the before snapshot of every file in the latest run, as
// long as each file still has the content that run produced. The history
// pointer only moves when every file was restored.
func (m *Manager) Revert() (reverted, failed []string, err error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil, ErrNothingToRevert
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	reverted, failed = m.swap(ops, func(op Operation) (string, string) {
		return op.AfterHash, op.BeforeHash
	})
	if len(failed) == 0 {
		m.state.CurrentIndex--
		err = m.save()
	}
	return reverted, failed, err
}

// Redo re-applies the next reverted run under the same safety check.
func (m *Manager) Redo() (redone, failed []string, err error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, nil, ErrNothingToRedo
	}
	ops := m.state.History[next].Operations
	redone, failed = m.swap(ops, func(op Operation) (string, string) {
		return op.BeforeHash, op.AfterHash
	})
	if len(failed) == 0 {
		m.state.CurrentIndex = next
		err = m.save()
	}
	return redone, failed, err
}

// swap replaces each file whose current hash equals from with the snapshot
// stored under to.
func (m *Manager) swap(ops []Operation, hashes func(Operation) (from, to string)) (done, failed []string) {
	for _, op := range ops {
		from, to := hashes(op)
		currentHash, err := fs.GetFileSHA256(op.Path)
		// Core safety check: a file changed since the run is left alone.
		if err != nil || currentHash != from {
			failed = append(failed, op.Path)
			continue
		}
		content, err := m.LoadSnapshot(to)
		if err != nil {
			failed = append(failed, op.Path)
			continue
		}
		if err := fs.WriteAtomic(op.Path, content); err != nil {
			failed = append(failed, op.Path)
			continue
		}
		done = append(done, op.Path)
	}
	return done, failed
}
