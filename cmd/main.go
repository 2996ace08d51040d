package main

import (
	"os"
)

func main() {
	rootCmd := buildRootCommand()
	rootCmd.AddCommand(buildTidyCommand())
	rootCmd.AddCommand(buildApplyCommand())
	rootCmd.AddCommand(buildUndoCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
