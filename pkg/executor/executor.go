// Package executor applies planned operations to the filesystem.
//
// Operations run in sequence order. A failing operation is recorded
// and skipped; the rest of the plan still runs. Moves that cross a
// filesystem boundary fall back to copy, verify, delete: the source is
// only removed after the copy's size and content fingerprint match.
package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mediatidy/pkg/hasher"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/plan"
	"mediatidy/pkg/safepath"
)

// Recorder receives the outcome of each operation as it completes.
type Recorder interface {
	Applied(op plan.Operation) error
	Failed(op plan.Operation, opErr error) error
}

// Result is the outcome of one executed operation.
type Result struct {
	Op  plan.Operation
	Err error // nil when applied
}

// Executor runs a plan against a validated root.
type Executor struct {
	validator *safepath.Validator
	recorder  Recorder

	// rename is swappable so tests can simulate cross-device errors.
	rename func(oldpath, newpath string) error
}

// New creates an Executor. recorder may be nil for dry replays.
func New(validator *safepath.Validator, recorder Recorder) *Executor {
	return &Executor{
		validator: validator,
		recorder:  recorder,
		rename:    os.Rename,
	}
}

// Execute applies every operation in order. The returned error covers
// infrastructure failures (journaling); individual operation failures
// land in their Result.
func (e *Executor) Execute(ops []plan.Operation) ([]Result, error) {
	results := make([]Result, 0, len(ops))

	for _, op := range ops {
		opErr := e.apply(op)
		results = append(results, Result{Op: op, Err: opErr})

		if e.recorder == nil {
			continue
		}
		var recErr error
		if opErr != nil {
			recErr = e.recorder.Failed(op, opErr)
		} else {
			recErr = e.recorder.Applied(op)
		}
		if recErr != nil {
			return results, fmt.Errorf("recording outcome of op %d: %w", op.Seq, recErr)
		}
	}

	return results, nil
}

func (e *Executor) apply(op plan.Operation) error {
	switch op.Op {
	case journal.OpMkdir:
		return e.validator.SafeMkdirAll(op.Dst)

	case journal.OpMove:
		if err := e.validator.ValidateForMutation(op.Src); err != nil {
			return err
		}
		if err := e.validator.ValidateForMutation(op.Dst); err != nil {
			return err
		}
		return e.moveFile(op.Src, op.Dst)

	case journal.OpDelete:
		return e.validator.SafeRemove(op.Src)

	case journal.OpQuarantine:
		// The destination lives under the quarantine directory, which
		// may sit outside the root; only the source is root-validated.
		if err := e.validator.ValidateForMutation(op.Src); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(op.Dst), 0o755); err != nil {
			return fmt.Errorf("creating quarantine dir: %w", err)
		}
		return e.moveFile(op.Src, op.Dst)

	case journal.OpRmdir:
		return e.validator.SafeRemoveDir(op.Dst)

	default:
		return fmt.Errorf("unknown operation type %q", op.Op)
	}
}

func (e *Executor) moveFile(src, dst string) error {
	return move(e.rename, src, dst)
}

// Move renames src to dst, refusing to overwrite, and falls back to
// copy-verify-delete when the rename crosses a filesystem boundary.
func Move(src, dst string) error {
	return move(os.Rename, src, dst)
}

func move(rename func(oldpath, newpath string) error, src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("destination %s already exists", dst)
	} else if !os.IsNotExist(err) {
		return err
	}

	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}
	return copyVerifyDelete(src, dst)
}

// fingerprint is swappable so tests can simulate a corrupted copy.
var fingerprint = hasher.Fingerprint

// copyVerifyDelete copies src to a temp file beside dst, syncs it,
// verifies size and fingerprint against the source, renames it into
// place, and only then removes the source.
func copyVerifyDelete(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	srcHash, err := fingerprint(src)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp copy: %w", err)
	}
	tmpPath := tmp.Name()

	if err := copyInto(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	tmpInfo, err := os.Stat(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if tmpInfo.Size() != srcInfo.Size() {
		os.Remove(tmpPath)
		return fmt.Errorf("copy of %s has size %d, want %d", src, tmpInfo.Size(), srcInfo.Size())
	}

	tmpHash, err := fingerprint(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if tmpHash != srcHash {
		os.Remove(tmpPath)
		return fmt.Errorf("copy of %s failed content verification", src)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Remove(src)
}

func copyInto(dst *os.File, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// SetRenameFunc replaces the rename primitive, for tests.
func (e *Executor) SetRenameFunc(fn func(oldpath, newpath string) error) {
	e.rename = fn
}
