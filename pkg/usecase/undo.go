package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mediatidy/pkg/executor"
	"mediatidy/pkg/hasher"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/safepath"
)

// UndoRequest describes one undo invocation. An empty JournalPath
// targets the newest journal at the root.
type UndoRequest struct {
	Root        string
	JournalPath string
}

// Undo actions reported per journal entry.
const (
	UndoRestored     = "restored"
	UndoRecreated    = "recreated"
	UndoRemoved      = "removed"
	UndoIrreversible = "irreversible"
	UndoFailed       = "failed"
	UndoSkipped      = "skipped"
)

// UndoStep is the result of reverting one applied operation.
type UndoStep struct {
	Entry  journal.Entry
	Action string
	Reason string
}

// UndoOutcome summarizes an undo run.
type UndoOutcome struct {
	Root        string
	JournalPath string
	RenamedTo   string

	Steps []UndoStep

	Restored     int
	Irreversible int
	Failed       int
}

// Undo replays a journal's applied operations in reverse, restoring
// moved files, bringing quarantined files back after verifying their
// content fingerprint, and recreating swept directories. Deletes are
// irreversible and only reported. The journal is renamed afterwards so
// it cannot be undone twice.
func (s *Service) Undo(ctx context.Context, req UndoRequest) (*UndoOutcome, error) {
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
	if !journal.Executed(entries) {
		return nil, fmt.Errorf("journal %s records no executed operations; nothing to undo", journalPath)
	}

	outcome := &UndoOutcome{Root: root, JournalPath: journalPath}

	for _, entry := range journal.AppliedReverse(entries) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := s.revert(validator, entry)
		outcome.Steps = append(outcome.Steps, step)

		switch step.Action {
		case UndoRestored, UndoRecreated, UndoRemoved:
			outcome.Restored++
		case UndoIrreversible:
			outcome.Irreversible++
		case UndoFailed:
			outcome.Failed++
		}
	}

	renamed, err := journal.MarkRolledBack(journalPath)
	if err != nil {
		return nil, err
	}
	outcome.RenamedTo = renamed
	return outcome, nil
}

// revert inverts one applied operation.
func (s *Service) revert(validator *safepath.Validator, entry journal.Entry) UndoStep {
	step := UndoStep{Entry: entry}

	switch entry.Op {
	case journal.OpMove:
		step.Action, step.Reason = s.restoreMove(validator, entry)

	case journal.OpQuarantine:
		step.Action, step.Reason = s.restoreQuarantine(validator, entry)

	case journal.OpDelete:
		step.Action = UndoIrreversible
		step.Reason = "deleted content cannot be restored"

	case journal.OpMkdir:
		// Only remove the directory when the moves out of it have
		// already been reverted and nothing else appeared inside.
		if err := validator.SafeRemoveDir(entry.Dst); err != nil {
			step.Action = UndoSkipped
			step.Reason = fmt.Sprintf("directory not removed: %v", err)
		} else {
			step.Action = UndoRemoved
		}

	case journal.OpRmdir:
		if err := validator.SafeMkdirAll(entry.Dst); err != nil {
			step.Action = UndoFailed
			step.Reason = err.Error()
		} else {
			step.Action = UndoRecreated
		}

	default:
		step.Action = UndoSkipped
		step.Reason = fmt.Sprintf("unknown operation %q", entry.Op)
	}

	return step
}

func (s *Service) restoreMove(validator *safepath.Validator, entry journal.Entry) (string, string) {
	if _, err := os.Lstat(entry.Dst); err != nil {
		return UndoSkipped, fmt.Sprintf("moved file no longer at %s", entry.Dst)
	}
	if _, err := os.Lstat(entry.Src); err == nil {
		return UndoFailed, fmt.Sprintf("original path %s is occupied", entry.Src)
	}

	if err := validator.SafeMkdirAll(filepath.Dir(entry.Src)); err != nil {
		return UndoFailed, err.Error()
	}
	if err := validator.ValidateForMutation(entry.Dst); err != nil {
		return UndoFailed, err.Error()
	}
	if err := executor.Move(entry.Dst, entry.Src); err != nil {
		return UndoFailed, err.Error()
	}
	return UndoRestored, ""
}

// restoreQuarantine moves a quarantined file back after verifying the
// recorded fingerprint, so a file modified in quarantine never
// silently replaces library content.
func (s *Service) restoreQuarantine(validator *safepath.Validator, entry journal.Entry) (string, string) {
	if _, err := os.Lstat(entry.Dst); err != nil {
		return UndoSkipped, fmt.Sprintf("quarantined file no longer at %s", entry.Dst)
	}

	if entry.Hash != "" {
		hash, err := hasher.Fingerprint(entry.Dst)
		if err != nil {
			return UndoFailed, err.Error()
		}
		if hash != entry.Hash {
			return UndoFailed, fmt.Sprintf("content of %s changed in quarantine", entry.Dst)
		}
	}

	if _, err := os.Lstat(entry.Src); err == nil {
		return UndoFailed, fmt.Sprintf("original path %s is occupied", entry.Src)
	}
	if err := validator.SafeMkdirAll(filepath.Dir(entry.Src)); err != nil {
		return UndoFailed, err.Error()
	}

	// The quarantine side sits outside the validator's root; only the
	// restore destination is validated.
	if err := validator.ValidateForMutation(entry.Src); err != nil {
		return UndoFailed, err.Error()
	}
	if err := executor.Move(entry.Dst, entry.Src); err != nil {
		return UndoFailed, err.Error()
	}
	return UndoRestored, ""
}
