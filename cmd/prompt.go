package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	dbmerge "github.com/uvilor/dbm-merge"
)

var (
	promptFrom      string
	promptTo        string
	promptSchema    string
	promptNormFile  string
	promptNameCase  string
	promptDefaults  bool
	promptTarget    string
	promptDirection string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Emit a Markdown review prompt for the migration",
	Long:  "Compare both schemas and print a bounded Markdown prompt with the diff and the proposed DDL, ready for human or AI review.",
	RunE:  runPrompt,
}

func init() {
	addConnectionFlags(promptCmd, &promptFrom, &promptTo, &promptSchema)
	addNormalizeFlags(promptCmd, &promptNormFile, &promptNameCase, &promptDefaults)
	promptCmd.Flags().StringVar(&promptTarget, "target", "postgres", "Target dialect for the DDL excerpt: postgres, mariadb")
	promptCmd.Flags().StringVar(&promptDirection, "direction", string(dbmerge.DirectionAtoB), "Desired end state: AtoB, BtoA")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	result, err := loadAndDiff(cmd.Context(),
		promptFrom, promptTo, promptSchema, promptNormFile, promptNameCase, promptDefaults)
	if err != nil {
		return err
	}

	ddl, err := renderScript(result, promptTarget, dbmerge.GenerateOptions{
		Direction: dbmerge.Direction(promptDirection),
		SafeMode:  true,
	})
	if err != nil {
		return err
	}

	output, err := dbmerge.ReviewPrompt(result, ddl)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
