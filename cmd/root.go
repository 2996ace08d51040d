package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func buildRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediatidy",
		Short: "Reorganize a media library into a canonical layout, with undo",
		Long: `mediatidy classifies the files under a media directory, plans the
moves and deletions needed to bring the tree into a canonical layout,
and executes that plan transactionally.

TV episodes land in <Show>/Season <NN>/, movies in <Title> (<Year>)/,
subtitles follow their video with language tags. Samples, archives,
images and release metadata are removed (or quarantined), and emptied
release folders are swept away.

Every run that touches the filesystem first writes its full plan to an
append-only journal at the root, then records each operation as it
completes. A journal can be replayed (apply) or reversed (undo).

Examples:
  # Preview what a run would do
  mediatidy tidy /srv/media

  # Write the plan to a journal without executing it
  mediatidy tidy --plan /srv/media

  # Reorganize for real
  mediatidy tidy --commit /srv/media

  # Move junk aside instead of deleting it
  mediatidy tidy --commit --quarantine /srv/quarantine /srv/media

  # Execute a previously written plan
  mediatidy apply /srv/media

  # Reverse the most recent run
  mediatidy undo /srv/media

Safety:
  The tool will NEVER modify files outside the target directory (and
  the quarantine directory, when one is given). Cross-filesystem moves
  copy first and only delete the source after the copy verifies.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: per-user config)")

	return cmd
}
