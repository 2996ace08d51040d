package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"mediatidy/pkg/executor"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/plan"
	"mediatidy/pkg/safepath"
	"mediatidy/pkg/sweep"
)

// ApplyRequest describes one apply invocation. An empty JournalPath
// targets the newest journal at the root.
type ApplyRequest struct {
	Root        string
	JournalPath string
}

// ApplyOutcome summarizes an apply run.
type ApplyOutcome struct {
	Root        string
	JournalPath string

	Results []executor.Result
	Swept   []string

	Pending int // planned operations without an outcome before this run
	Applied int
	Failed  int
}

// Apply executes the planned operations of a journal that have no
// outcome yet. A plan-only journal runs in full, producing exactly the
// filesystem state a commit run would have; a journal from an
// interrupted run resumes where it stopped. Outcomes append to the
// same journal, so undo covers everything.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplyOutcome, error) {
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

	journalPath := req.JournalPath
	if journalPath == "" {
		journalPath, err = journal.Latest(root)
		if err != nil {
			return nil, err
		}
	}

	entries, err := journal.Read(journalPath)
	if err != nil {
		return nil, err
	}

	planned := journal.Planned(entries)
	if len(planned) == 0 {
		return nil, fmt.Errorf("journal %s contains no planned operations", journalPath)
	}

	outcomes := journal.Outcomes(entries)
	var pending []plan.Operation
	touched := map[string]bool{}
	runID := ""

	for _, e := range planned {
		runID = e.RunID
		if _, done := outcomes[e.Seq]; done {
			continue
		}
		pending = append(pending, plan.Operation{
			Seq: e.Seq, Op: e.Op, Src: e.Src, Dst: e.Dst, Hash: e.Hash,
		})
		if e.Src != "" && filepath.Dir(e.Src) != root {
			touched[filepath.Dir(e.Src)] = true
		}
	}

	outcome := &ApplyOutcome{Root: root, JournalPath: journalPath, Pending: len(pending)}
	if len(pending) == 0 {
		return outcome, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	writer, err := journal.NewWriter(journalPath)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	rec := &journalRecorder{writer: writer, runID: runID}
	results, execErr := executor.New(validator, rec).Execute(pending)
	outcome.Results = results
	for _, r := range results {
		if r.Err != nil {
			outcome.Failed++
		} else {
			outcome.Applied++
		}
	}
	if execErr != nil {
		return nil, execErr
	}

	dirs := make([]string, 0, len(touched))
	for d := range touched {
		dirs = append(dirs, d)
	}
	swept, _ := sweep.Run(validator, dirs)
	outcome.Swept = swept

	nextSeq := planned[len(planned)-1].Seq
	for _, dir := range swept {
		nextSeq++
		entry := journal.Entry{
			Seq:       nextSeq,
			RunID:     runID,
			Timestamp: time.Now().UTC(),
			Op:        journal.OpRmdir,
			Dst:       dir,
			Outcome:   journal.OutcomeApplied,
		}
		if err := writer.Append(entry); err != nil {
			return nil, fmt.Errorf("journaling sweep: %w", err)
		}
	}

	return outcome, nil
}
