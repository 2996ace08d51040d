package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatidy/pkg/usecase"
)

var undoJournal string

func buildUndoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo [path]",
		Short: "Reverse the most recent run using its journal",
		Long: `Reverses a run by replaying its journal backwards:
  - Moved files return to their original locations
  - Quarantined files are restored after their content verifies
  - Created directories are removed, swept directories recreated
  - Deleted files cannot come back and are reported as irreversible

The journal is renamed after a successful undo so it cannot be undone
twice.

Examples:
  mediatidy undo /srv/media
  mediatidy undo --journal /srv/media/.mediatidy-journal-20260826T120000-1b9d6bcd.jsonl /srv/media`,
		Args: cobra.ExactArgs(1),
		RunE: runUndo,
	}

	cmd.Flags().StringVar(&undoJournal, "journal", "", "Journal file to undo (default: the newest one)")

	return cmd
}

func runUndo(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	progress := startProgress("undoing")
	outcome, err := svc.Undo(cmd.Context(), usecase.UndoRequest{
		Root:        args[0],
		JournalPath: undoJournal,
	})
	progress.Stop()
	if err != nil {
		return err
	}

	printCommandHeader("UNDO", outcome.Root)
	fmt.Printf("Journal: %s\n", outcome.JournalPath)
	fmt.Println()

	for _, step := range outcome.Steps {
		switch step.Action {
		case usecase.UndoRestored:
			fmt.Printf("RESTORE: %s\n", step.Entry.Src)
			fmt.Printf("   FROM: %s\n", step.Entry.Dst)
		case usecase.UndoIrreversible:
			fmt.Printf("IRREVERSIBLE: %s (%s)\n", step.Entry.Src, step.Reason)
		case usecase.UndoFailed:
			fmt.Printf("ERROR: [%s] %s: %s\n", step.Entry.Op, stepPath(step), step.Reason)
		case usecase.UndoSkipped:
			fmt.Printf("SKIP: [%s] %s (%s)\n", step.Entry.Op, stepPath(step), step.Reason)
		}
	}
	fmt.Println()

	printSummary(
		fmt.Sprintf("Restored:      %d", outcome.Restored),
		fmt.Sprintf("Irreversible:  %d", outcome.Irreversible),
		fmt.Sprintf("Errors:        %d", outcome.Failed),
	)

	return operationsFailedError(outcome.Failed)
}

func stepPath(step usecase.UndoStep) string {
	if step.Entry.Src != "" {
		return step.Entry.Src
	}
	return step.Entry.Dst
}
