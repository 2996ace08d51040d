package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntries(t *testing.T, path string, entries ...Entry) {
	t.Helper()
	w, err := NewWriter(path)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	now := time.Now().UTC().Truncate(time.Second)

	writeEntries(t, path,
		Entry{Seq: 1, RunID: "r1", Timestamp: now, Op: OpMkdir, Dst: "/media/Show", Outcome: OutcomePlanned},
		Entry{Seq: 2, RunID: "r1", Timestamp: now, Op: OpMove, Src: "/media/a.mkv", Dst: "/media/Show/a.mkv", Outcome: OutcomePlanned},
		Entry{Seq: 1, RunID: "r1", Timestamp: now, Op: OpMkdir, Dst: "/media/Show", Outcome: OutcomeApplied},
		Entry{Seq: 2, RunID: "r1", Timestamp: now, Op: OpMove, Src: "/media/a.mkv", Dst: "/media/Show/a.mkv", Outcome: OutcomeFailed, Error: "boom"},
	)

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, OpMove, entries[1].Op)
	assert.Equal(t, "/media/a.mkv", entries[1].Src)
	assert.Equal(t, "boom", entries[3].Error)
}

func TestPlannedAndOutcomes(t *testing.T) {
	entries := []Entry{
		{Seq: 1, Op: OpMove, Outcome: OutcomePlanned},
		{Seq: 2, Op: OpDelete, Outcome: OutcomePlanned},
		{Seq: 1, Op: OpMove, Outcome: OutcomeApplied},
		{Seq: 2, Op: OpDelete, Outcome: OutcomeFailed, Error: "denied"},
	}

	planned := Planned(entries)
	require.Len(t, planned, 2)
	assert.Equal(t, 1, planned[0].Seq)

	outcomes := Outcomes(entries)
	require.Len(t, outcomes, 2)
	assert.Equal(t, OutcomeApplied, outcomes[1].Outcome)
	assert.Equal(t, OutcomeFailed, outcomes[2].Outcome)
}

func TestAppliedReverse(t *testing.T) {
	entries := []Entry{
		{Seq: 1, Op: OpMkdir, Outcome: OutcomeApplied},
		{Seq: 2, Op: OpMove, Outcome: OutcomeApplied},
		{Seq: 3, Op: OpDelete, Outcome: OutcomeFailed},
	}

	reversed := AppliedReverse(entries)
	require.Len(t, reversed, 2)
	assert.Equal(t, 2, reversed[0].Seq)
	assert.Equal(t, 1, reversed[1].Seq)
}

func TestValidate(t *testing.T) {
	t.Run("complete run", func(t *testing.T) {
		entries := []Entry{
			{Seq: 1, Outcome: OutcomePlanned},
			{Seq: 1, Outcome: OutcomeApplied},
		}
		assert.NoError(t, Validate(entries))
	})

	t.Run("plan only journal", func(t *testing.T) {
		entries := []Entry{
			{Seq: 1, Outcome: OutcomePlanned},
			{Seq: 2, Outcome: OutcomePlanned},
		}
		assert.NoError(t, Validate(entries))
	})

	t.Run("interrupted run", func(t *testing.T) {
		entries := []Entry{
			{Seq: 1, Outcome: OutcomePlanned},
			{Seq: 2, Outcome: OutcomePlanned},
			{Seq: 1, Outcome: OutcomeApplied},
		}
		assert.ErrorIs(t, Validate(entries), ErrPartialRun)
	})
}

func TestLatestSkipsRolledBack(t *testing.T) {
	root := t.TempDir()

	older := Path(root, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "run-older")
	newer := Path(root, time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC), "run-newer")
	writeEntries(t, older, Entry{Seq: 1, Outcome: OutcomePlanned})
	writeEntries(t, newer, Entry{Seq: 1, Outcome: OutcomePlanned})

	got, err := Latest(root)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	renamed, err := MarkRolledBack(newer)
	require.NoError(t, err)
	assert.FileExists(t, renamed)

	got, err = Latest(root)
	require.NoError(t, err)
	assert.Equal(t, older, got)
}

func TestPathUniquePerRunWithinSameSecond(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 26, 9, 45, 28, 0, time.UTC)

	first := Path(root, now, "aaaaaaaa-1111-2222-3333-444444444444")
	second := Path(root, now, "bbbbbbbb-5555-6666-7777-888888888888")

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(filepath.Base(first), FilePrefix))
	assert.True(t, strings.HasSuffix(first, FileSuffix))
}

func TestLatestNoJournal(t *testing.T) {
	_, err := Latest(t.TempDir())
	assert.ErrorIs(t, err, ErrNoJournal)
}

func TestJournalSurvivesAbandonedWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(Entry{Seq: 1, Op: OpMove, Outcome: OutcomePlanned}))
	// Writer never closed: the synced line must still be readable.

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, w.Close())

	_ = os.Remove(path)
}
