// Package journal implements the append-only JSONL run journal.
//
// A run writes every planned operation to the journal before touching
// the filesystem, then appends an applied or failed record as each
// operation completes. Every line is synced on write, so the journal
// on disk always reflects exactly what has happened. Undo replays
// applied records in reverse; a journal whose planned records lack
// outcomes identifies an interrupted run.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// FilePrefix starts every journal file name at the library root.
	FilePrefix = ".mediatidy-journal-"
	// FileSuffix ends every journal file name.
	FileSuffix = ".jsonl"
	// RolledBackSuffix replaces FileSuffix once a journal is undone.
	RolledBackSuffix = ".rolled-back.jsonl"

	timestampLayout = "20060102T150405"
)

// Operation types recorded in the journal.
const (
	OpMove       = "move"
	OpDelete     = "delete"
	OpQuarantine = "quarantine"
	OpMkdir      = "mkdir"
	OpRmdir      = "rmdir"
)

// Outcome is the lifecycle state of one operation.
type Outcome string

const (
	OutcomePlanned Outcome = "planned"
	OutcomeApplied Outcome = "applied"
	OutcomeFailed  Outcome = "failed"
)

// Entry is one journal line. Paths are absolute. Hash carries the
// source content fingerprint for quarantine operations so undo can
// verify restores.
type Entry struct {
	Seq       int       `json:"seq"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"ts"`
	Op        string    `json:"op"`
	Src       string    `json:"src,omitempty"`
	Dst       string    `json:"dst,omitempty"`
	Hash      string    `json:"hash,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}

// ErrPartialRun reports a journal with planned operations that never
// received an applied or failed record.
var ErrPartialRun = errors.New("journal records an interrupted run")

// ErrNoJournal reports that a root has no journal to act on.
var ErrNoJournal = errors.New("no journal found")

// Path returns the journal file path for a run started at t. The run
// ID keeps the name unique when two runs start within the same second,
// so each run always gets its own file.
func Path(root string, t time.Time, runID string) string {
	name := FilePrefix + t.UTC().Format(timestampLayout) + "-" + shortRunID(runID) + FileSuffix
	return filepath.Join(root, name)
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

// Writer appends entries to a journal file, syncing each line.
type Writer struct {
	file *os.File
}

// NewWriter opens path for appending, creating it when absent.
func NewWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Writer{file: f}, nil
}

// Append writes one entry as a JSON line and syncs the file.
func (w *Writer) Append(e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}

	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing journal: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Read parses every entry in a journal file, in file order.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return entries, nil
}

// Planned returns the planned entries in sequence order.
func Planned(entries []Entry) []Entry {
	var planned []Entry
	for _, e := range entries {
		if e.Outcome == OutcomePlanned {
			planned = append(planned, e)
		}
	}
	sort.SliceStable(planned, func(i, j int) bool { return planned[i].Seq < planned[j].Seq })
	return planned
}

// Outcomes returns the final applied/failed record per sequence number.
func Outcomes(entries []Entry) map[int]Entry {
	final := make(map[int]Entry)
	for _, e := range entries {
		if e.Outcome == OutcomeApplied || e.Outcome == OutcomeFailed {
			final[e.Seq] = e
		}
	}
	return final
}

// AppliedReverse returns the applied entries in reverse application
// order, the order undo must replay them in.
func AppliedReverse(entries []Entry) []Entry {
	var applied []Entry
	for _, e := range entries {
		if e.Outcome == OutcomeApplied {
			applied = append(applied, e)
		}
	}
	for i, j := 0, len(applied)-1; i < j; i, j = i+1, j-1 {
		applied[i], applied[j] = applied[j], applied[i]
	}
	return applied
}

// Validate checks that every planned operation has a final outcome.
// Plan-only journals (no outcomes at all) are valid: they record a
// plan that was never executed.
func Validate(entries []Entry) error {
	outcomes := Outcomes(entries)
	if len(outcomes) == 0 {
		return nil
	}

	missing := 0
	for _, e := range Planned(entries) {
		if _, ok := outcomes[e.Seq]; !ok {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%w: %d planned operations without outcome", ErrPartialRun, missing)
	}
	return nil
}

// Executed reports whether any operation in the journal ran.
func Executed(entries []Entry) bool {
	return len(Outcomes(entries)) > 0
}

// Latest returns the newest journal file at root that has not been
// rolled back. ErrNoJournal when none exists.
func Latest(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, FilePrefix+"*"+FileSuffix))
	if err != nil {
		return "", err
	}

	var candidates []string
	for _, m := range matches {
		if !strings.HasSuffix(m, RolledBackSuffix) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w at %s", ErrNoJournal, root)
	}

	// Timestamps in the name sort lexically.
	sort.Strings(candidates)
	return candidates[len(candidates)-1], nil
}

// MarkRolledBack renames a journal so later runs and undos skip it.
func MarkRolledBack(path string) (string, error) {
	renamed := strings.TrimSuffix(path, FileSuffix) + RolledBackSuffix
	if err := os.Rename(path, renamed); err != nil {
		return "", fmt.Errorf("marking journal rolled back: %w", err)
	}
	return renamed, nil
}
