// Package cmd wires the CLI surface. All engine work goes through the root
// dbmerge package; commands only parse arguments and display results.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uvilor/dbm-merge/internal/logger"
	"github.com/uvilor/dbm-merge/internal/version"
)

var debug bool

var RootCmd = &cobra.Command{
	Use:   "dbm-merge",
	Short: "Compare two database schemas and generate a migration script",
	Long: fmt.Sprintf(`dbm-merge compares two relational schemas (PostgreSQL or MariaDB) and emits
a migration script that transforms one into the other.

Version: %s %s

Commands:
  compare   Show the structured diff between two schemas
  generate  Emit a migration script for a target dialect
  prompt    Emit a Markdown review prompt for the migration

Use "dbm-merge [command] --help" for more information about a command.`,
		version.Version(), version.Platform()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(debug)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(compareCmd)
	RootCmd.AddCommand(generateCmd)
	RootCmd.AddCommand(promptCmd)
}

// Execute runs the root command, printing engine errors to stderr in red with
// exit code 1.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
