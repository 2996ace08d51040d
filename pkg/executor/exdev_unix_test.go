//go:build unix

package executor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediatidy/internal/testutil"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/plan"
	"mediatidy/pkg/safepath"
)

func exdevRename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
}

func TestMoveFallsBackToCopyOnCrossDevice(t *testing.T) {
	root := t.TempDir()
	v, err := safepath.New(root)
	require.NoError(t, err)
	root = v.Root()

	exec := New(v, nil)
	exec.SetRenameFunc(exdevRename)

	src := testutil.WriteFile(t, root, "a/file.mkv", "payload")
	dst := filepath.Join(root, "b", "file.mkv")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))

	results, err := exec.Execute([]plan.Operation{
		{Seq: 1, Op: journal.OpMove, Src: src, Dst: dst},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	assert.NoFileExists(t, src)
	assert.Equal(t, "payload", testutil.ReadFile(t, dst))
}

func TestMoveCrossDeviceLeavesNoTempOnSuccess(t *testing.T) {
	root := t.TempDir()
	v, err := safepath.New(root)
	require.NoError(t, err)
	root = v.Root()

	exec := New(v, nil)
	exec.SetRenameFunc(exdevRename)

	src := testutil.WriteFile(t, root, "a/file.mkv", "payload")
	dstDir := testutil.MkDir(t, root, "b")
	dst := filepath.Join(dstDir, "file.mkv")

	results, err := exec.Execute([]plan.Operation{
		{Seq: 1, Op: journal.OpMove, Src: src, Dst: dst},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.mkv", entries[0].Name())
}

func TestMoveCrossDeviceVerifyFailureKeepsSource(t *testing.T) {
	root := t.TempDir()
	v, err := safepath.New(root)
	require.NoError(t, err)
	root = v.Root()

	exec := New(v, nil)
	exec.SetRenameFunc(exdevRename)

	// The temp copy hashes differently from the source, as if it were
	// corrupted in transit.
	prev := fingerprint
	fingerprint = func(path string) (string, error) {
		if strings.Contains(filepath.Base(path), ".tmp-") {
			return "corrupted", nil
		}
		return prev(path)
	}
	t.Cleanup(func() { fingerprint = prev })

	src := testutil.WriteFile(t, root, "a/file.mkv", "payload")
	dstDir := testutil.MkDir(t, root, "b")
	dst := filepath.Join(dstDir, "file.mkv")

	results, err := exec.Execute([]plan.Operation{
		{Seq: 1, Op: journal.OpMove, Src: src, Dst: dst},
	})
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "verification")

	// Source untouched, destination absent, no temp residue.
	assert.Equal(t, "payload", testutil.ReadFile(t, src))
	assert.NoFileExists(t, dst)
	entries, err := os.ReadDir(dstDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMoveNonCrossDeviceErrorSurfaces(t *testing.T) {
	root := t.TempDir()
	v, err := safepath.New(root)
	require.NoError(t, err)
	root = v.Root()

	exec := New(v, nil)
	renameErr := errors.New("disk on fire")
	exec.SetRenameFunc(func(string, string) error { return renameErr })

	src := testutil.WriteFile(t, root, "a/file.mkv", "payload")
	dst := filepath.Join(root, "a", "renamed.mkv")

	results, err := exec.Execute([]plan.Operation{
		{Seq: 1, Op: journal.OpMove, Src: src, Dst: dst},
	})
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, renameErr)
	assert.FileExists(t, src)
}

func TestIsCrossDevice(t *testing.T) {
	assert.True(t, isCrossDevice(exdevRename("a", "b")))
	assert.True(t, isCrossDevice(syscall.EXDEV))
	assert.False(t, isCrossDevice(errors.New("other")))
	assert.False(t, isCrossDevice(nil))
}
