package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatidy/pkg/usecase"
)

var applyJournal string

func buildApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [path]",
		Short: "Execute the pending operations of a journal",
		Long: `Executes the planned operations of a journal that have not run yet.

A journal written with 'tidy --plan' runs in full and produces the same
filesystem state an immediate commit would have. A journal from an
interrupted run resumes where it stopped. Outcomes append to the same
journal, so a later undo covers everything.

Examples:
  mediatidy apply /srv/media
  mediatidy apply --journal /srv/media/.mediatidy-journal-20260826T120000-1b9d6bcd.jsonl /srv/media`,
		Args: cobra.ExactArgs(1),
		RunE: runApply,
	}

	cmd.Flags().StringVar(&applyJournal, "journal", "", "Journal file to apply (default: the newest one)")

	return cmd
}

func runApply(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	progress := startProgress("applying")
	outcome, err := svc.Apply(cmd.Context(), usecase.ApplyRequest{
		Root:        args[0],
		JournalPath: applyJournal,
	})
	progress.Stop()
	if err != nil {
		return err
	}

	printCommandHeader("APPLY", outcome.Root)
	fmt.Printf("Journal: %s\n", outcome.JournalPath)
	fmt.Println()

	for _, r := range outcome.Results {
		if r.Err != nil {
			fmt.Printf("ERROR: [%s] %s: %v\n", r.Op.Op, r.Op.Src, r.Err)
		}
	}

	printSummary(
		fmt.Sprintf("Pending:       %d", outcome.Pending),
		fmt.Sprintf("Applied:       %d", outcome.Applied),
		fmt.Sprintf("Failed:        %d", outcome.Failed),
		fmt.Sprintf("Dirs swept:    %d", len(outcome.Swept)),
	)

	return operationsFailedError(outcome.Failed)
}
