package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "helpdesk",
		Short:        "Helpdesk conversation and ticket service",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.AddCommand(newServeCommand(), newMigrateCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
