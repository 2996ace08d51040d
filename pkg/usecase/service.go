// Package usecase wires collection, classification, planning,
// journaling, execution and sweeping into the engine's top-level
// operations: tidy, undo and apply.
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mediatidy/pkg/classify"
	"mediatidy/pkg/collector"
	"mediatidy/pkg/config"
	"mediatidy/pkg/executor"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/layout"
	"mediatidy/pkg/plan"
	"mediatidy/pkg/safepath"
	"mediatidy/pkg/sweep"
	"mediatidy/pkg/tmdb"
)

// LockFileName is the advisory lock taken at the root for the duration
// of any mutating run.
const LockFileName = ".mediatidy.lock"

// Mode selects how far a tidy run goes.
type Mode string

const (
	// ModeDryRun plans and reports without writing anything.
	ModeDryRun Mode = "dry-run"
	// ModePlan writes the plan to a journal without executing it.
	ModePlan Mode = "plan"
	// ModeCommit writes the journal and executes the plan.
	ModeCommit Mode = "commit"
)

// Service runs engine operations with a fixed configuration.
type Service struct {
	cfg    *config.Config
	lookup layout.YearLookup
}

// NewService creates a Service. The TMDB client is built lazily from
// the configured API key when a request enables lookups.
func NewService(cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{cfg: cfg}
}

// SetLookup overrides the year lookup, for tests.
func (s *Service) SetLookup(lookup layout.YearLookup) {
	s.lookup = lookup
}

// TidyRequest describes one tidy invocation.
type TidyRequest struct {
	Root string
	Mode Mode

	// QuarantineDir overrides the configured quarantine directory.
	QuarantineDir string

	// EnableLookup turns on TMDB year resolution for yearless movies.
	EnableLookup bool
}

// TidyOutcome is everything a tidy run produced.
type TidyOutcome struct {
	Root        string
	RunID       string
	Mode        Mode
	JournalPath string

	Plan    *plan.Result
	Results []executor.Result
	Swept   []string

	Applied int
	Failed  int
}

// Tidy runs the full pipeline against a root. In ModeDryRun nothing is
// written; in ModePlan the journal records the plan for a later apply;
// in ModeCommit the plan executes and empty directories are swept.
func (s *Service) Tidy(ctx context.Context, req TidyRequest) (*TidyOutcome, error) {
	validator, err := safepath.New(req.Root)
	if err != nil {
		return nil, err
	}
	root := validator.Root()

	unlock, err := acquireLock(root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	quarantineDir, err := s.quarantineDir(req)
	if err != nil {
		return nil, err
	}

	files, err := s.collect(root, quarantineDir)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}

	result, err := s.buildPlan(ctx, root, quarantineDir, req.EnableLookup, files)
	if err != nil {
		return nil, err
	}

	outcome := &TidyOutcome{
		Root:  root,
		RunID: uuid.NewString(),
		Mode:  req.Mode,
		Plan:  result,
	}

	if req.Mode == ModeDryRun {
		return outcome, nil
	}

	journalPath := journal.Path(root, time.Now(), outcome.RunID)
	writer, err := journal.NewWriter(journalPath)
	if err != nil {
		return nil, err
	}
	defer writer.Close()
	outcome.JournalPath = journalPath

	if err := writePlan(writer, outcome.RunID, result.Operations); err != nil {
		return nil, err
	}

	if req.Mode == ModePlan {
		return outcome, nil
	}

	if err := s.execute(validator, writer, outcome, result.Operations, result.TouchedDirs); err != nil {
		return nil, err
	}
	return outcome, nil
}

// execute runs the plan, sweeps emptied directories and journals the
// sweep as applied rmdir operations.
func (s *Service) execute(validator *safepath.Validator, writer *journal.Writer, outcome *TidyOutcome, ops []plan.Operation, touched []string) error {
	rec := &journalRecorder{writer: writer, runID: outcome.RunID}

	results, err := executor.New(validator, rec).Execute(ops)
	outcome.Results = results
	for _, r := range results {
		if r.Err != nil {
			outcome.Failed++
		} else {
			outcome.Applied++
		}
	}
	if err != nil {
		return err
	}

	swept, _ := sweep.Run(validator, touched)
	outcome.Swept = swept

	for i, dir := range swept {
		entry := journal.Entry{
			Seq:       len(ops) + i + 1,
			RunID:     outcome.RunID,
			Timestamp: time.Now().UTC(),
			Op:        journal.OpRmdir,
			Dst:       dir,
			Outcome:   journal.OutcomeApplied,
		}
		if err := writer.Append(entry); err != nil {
			return fmt.Errorf("journaling sweep: %w", err)
		}
	}
	return nil
}

func (s *Service) buildPlan(ctx context.Context, root, quarantineDir string, enableLookup bool, files []collector.FileInfo) (*plan.Result, error) {
	var lookup layout.YearLookup
	if enableLookup {
		lookup = s.lookup
		if lookup == nil && s.cfg.TMDB.APIKey != "" {
			lookup = tmdb.New(s.cfg.TMDB.APIKey)
		}
	}

	resolver, err := layout.NewResolver(root, lookup)
	if err != nil {
		return nil, err
	}

	planner := plan.New(root, classify.New(s.cfg.Rules()), resolver, plan.Options{
		QuarantineDir:             quarantineDir,
		FilterSubtitlesEverywhere: !s.cfg.Subtitles.ReleaseOnlyFiltering,
	})
	return planner.Plan(ctx, files)
}

// collect walks the root, skipping engine artifacts and anything
// inside the quarantine directory when it lives under the root.
func (s *Service) collect(root, quarantineDir string) ([]collector.FileInfo, error) {
	files, err := collector.New(collector.Options{
		SkipFiles:    []string{LockFileName},
		SkipPrefixes: []string{journal.FilePrefix},
	}).Collect(root)
	if err != nil {
		return nil, err
	}

	if quarantineDir == "" {
		return files, nil
	}

	prefix := quarantineDir + string(filepath.Separator)
	kept := files[:0]
	for _, f := range files {
		if !strings.HasPrefix(f.Path, prefix) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func (s *Service) quarantineDir(req TidyRequest) (string, error) {
	dir := req.QuarantineDir
	if dir == "" {
		dir = s.cfg.Quarantine
	}
	if dir == "" {
		return "", nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving quarantine dir: %w", err)
	}
	return abs, nil
}

func writePlan(writer *journal.Writer, runID string, ops []plan.Operation) error {
	now := time.Now().UTC()
	for _, op := range ops {
		entry := journal.Entry{
			Seq:       op.Seq,
			RunID:     runID,
			Timestamp: now,
			Op:        op.Op,
			Src:       op.Src,
			Dst:       op.Dst,
			Hash:      op.Hash,
			Outcome:   journal.OutcomePlanned,
		}
		if err := writer.Append(entry); err != nil {
			return fmt.Errorf("journaling plan: %w", err)
		}
	}
	return nil
}

// journalRecorder appends applied/failed records as operations finish.
type journalRecorder struct {
	writer *journal.Writer
	runID  string
}

func (r *journalRecorder) Applied(op plan.Operation) error {
	return r.record(op, journal.OutcomeApplied, "")
}

func (r *journalRecorder) Failed(op plan.Operation, opErr error) error {
	return r.record(op, journal.OutcomeFailed, opErr.Error())
}

func (r *journalRecorder) record(op plan.Operation, outcome journal.Outcome, errMsg string) error {
	return r.writer.Append(journal.Entry{
		Seq:       op.Seq,
		RunID:     r.runID,
		Timestamp: time.Now().UTC(),
		Op:        op.Op,
		Src:       op.Src,
		Dst:       op.Dst,
		Hash:      op.Hash,
		Outcome:   outcome,
		Error:     errMsg,
	})
}

// acquireLock takes the advisory run lock, failing fast when another
// process holds it.
func acquireLock(root string) (func(), error) {
	lockPath := filepath.Join(root, LockFileName)
	lock := flock.New(lockPath)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("another process is working on %s", root)
	}

	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}, nil
}
