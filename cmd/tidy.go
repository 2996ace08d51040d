package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatidy/pkg/plan"
	"mediatidy/pkg/usecase"
)

var (
	tidyCommit     bool
	tidyPlanOnly   bool
	tidyQuarantine string
	tidyLookup     bool
)

func buildTidyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tidy [path]",
		Short: "Classify, plan and reorganize the media tree",
		Long: `Walks the target directory, classifies every file, and plans the
operations that bring the tree into the canonical layout.

Without flags the plan is only printed. With --plan it is written to a
journal at the root for a later apply. With --commit the journal is
written and the plan executes immediately.

Examples:
  mediatidy tidy /srv/media                      # preview
  mediatidy tidy --plan /srv/media               # journal only
  mediatidy tidy --commit /srv/media             # reorganize
  mediatidy tidy --commit --lookup /srv/media    # resolve movie years via TMDB`,
		Args: cobra.ExactArgs(1),
		RunE: runTidy,
	}

	cmd.Flags().BoolVar(&tidyCommit, "commit", false, "Execute the plan")
	cmd.Flags().BoolVar(&tidyPlanOnly, "plan", false, "Write the plan to a journal without executing it")
	cmd.Flags().StringVar(&tidyQuarantine, "quarantine", "", "Move junk here instead of deleting it")
	cmd.Flags().BoolVar(&tidyLookup, "lookup", false, "Resolve missing movie years via TMDB")

	return cmd
}

func runTidy(cmd *cobra.Command, args []string) error {
	if tidyCommit && tidyPlanOnly {
		return fmt.Errorf("--commit and --plan are mutually exclusive")
	}

	mode := usecase.ModeDryRun
	switch {
	case tidyCommit:
		mode = usecase.ModeCommit
	case tidyPlanOnly:
		mode = usecase.ModePlan
	}

	svc, err := newService()
	if err != nil {
		return err
	}

	progress := startProgress("working")
	outcome, err := svc.Tidy(cmd.Context(), usecase.TidyRequest{
		Root:          args[0],
		Mode:          mode,
		QuarantineDir: tidyQuarantine,
		EnableLookup:  tidyLookup,
	})
	progress.Stop()
	if err != nil {
		return err
	}

	if mode == usecase.ModeDryRun {
		fmt.Println("=== DRY RUN - no changes will be made ===")
		fmt.Println()
	}

	printCommandHeader("TIDY", outcome.Root)
	if outcome.JournalPath != "" {
		fmt.Printf("Journal: %s\n", outcome.JournalPath)
	}
	fmt.Println()

	printDecisions(outcome.Plan)
	printFailures(outcome)

	summary := []string{
		fmt.Sprintf("Moves:         %d", outcome.Plan.Moves),
		fmt.Sprintf("Deletes:       %d", outcome.Plan.Deletes),
		fmt.Sprintf("Quarantined:   %d", outcome.Plan.Quarantines),
		fmt.Sprintf("Duplicates:    %d", outcome.Plan.Duplicates),
		fmt.Sprintf("In place:      %d", outcome.Plan.AlreadyPlaced),
		fmt.Sprintf("Reported:      %d", outcome.Plan.Reported),
	}
	if mode == usecase.ModeCommit {
		summary = append(summary,
			fmt.Sprintf("Applied:       %d", outcome.Applied),
			fmt.Sprintf("Failed:        %d", outcome.Failed),
			fmt.Sprintf("Dirs swept:    %d", len(outcome.Swept)),
		)
	}
	printSummary(summary...)

	if mode == usecase.ModeDryRun {
		fmt.Println()
		fmt.Println("Run with --commit to apply changes.")
	}

	return operationsFailedError(outcome.Failed)
}

func printDecisions(result *plan.Result) {
	for _, d := range result.Decisions {
		switch d.Action {
		case plan.ActionMove:
			fmt.Printf("MOVE: %s\n", d.Path)
			fmt.Printf("  TO: %s\n", d.Dst)
		case plan.ActionDelete:
			fmt.Printf("DELETE: %s (%s)\n", d.Path, d.Reason)
		case plan.ActionQuarantine:
			fmt.Printf("QUARANTINE: %s (%s)\n", d.Path, d.Reason)
			fmt.Printf("        TO: %s\n", d.Dst)
		case plan.ActionReport:
			fmt.Printf("SKIP: %s (%s)\n", d.Path, d.Reason)
		}
	}
	if len(result.Decisions) > 0 {
		fmt.Println()
	}
}

func printFailures(outcome *usecase.TidyOutcome) {
	for _, r := range outcome.Results {
		if r.Err != nil {
			fmt.Printf("ERROR: [%s] %s: %v\n", r.Op.Op, r.Op.Src, r.Err)
		}
	}
}
