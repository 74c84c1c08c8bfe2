package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dbmerge "github.com/uvilor/dbm-merge"
	"github.com/uvilor/dbm-merge/internal/model"
)

var (
	genFrom      string
	genTo        string
	genSchema    string
	genNormFile  string
	genNameCase  string
	genDefaults  bool
	genTarget    string
	genDirection string
	genWithTx    bool
	genSafe      bool
	genCascade   bool
	genIfExists  bool
	genOut       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Emit a migration script for a target dialect",
	Long:  "Compare both schemas and emit the DDL that transitions the working database toward the desired side, honoring the safety options.",
	RunE:  runGenerate,
}

func init() {
	addConnectionFlags(generateCmd, &genFrom, &genTo, &genSchema)
	addNormalizeFlags(generateCmd, &genNormFile, &genNameCase, &genDefaults)
	generateCmd.Flags().StringVar(&genTarget, "target", "", "Target dialect: postgres, mariadb (required)")
	generateCmd.Flags().StringVar(&genDirection, "direction", string(dbmerge.DirectionAtoB), "Desired end state: AtoB, BtoA")
	generateCmd.Flags().BoolVar(&genWithTx, "with-transaction", false, "Wrap the script in a transaction")
	generateCmd.Flags().BoolVar(&genSafe, "safe", false, "Comment out destructive statements")
	generateCmd.Flags().BoolVar(&genCascade, "cascade", false, "Append CASCADE to table and view drops")
	generateCmd.Flags().BoolVar(&genIfExists, "if-exists", false, "Add IF EXISTS to drops")
	generateCmd.Flags().StringVar(&genOut, "out", "", "Also write the script to this file")
	generateCmd.MarkFlagRequired("target")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	result, err := loadAndDiff(cmd.Context(),
		genFrom, genTo, genSchema, genNormFile, genNameCase, genDefaults)
	if err != nil {
		return err
	}

	script, err := renderScript(result, genTarget, dbmerge.GenerateOptions{
		Direction:       dbmerge.Direction(genDirection),
		WithTransaction: genWithTx,
		SafeMode:        genSafe,
		Cascade:         genCascade,
		IfExists:        genIfExists,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), script)
	if genOut != "" {
		if err := os.WriteFile(genOut, []byte(script), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", genOut, err)
		}
	}
	return nil
}

func renderScript(result *dbmerge.DiffResult, target string, opts dbmerge.GenerateOptions) (string, error) {
	switch target {
	case "postgres":
		return dbmerge.ToPostgres(result, opts)
	case "mariadb":
		return dbmerge.ToMariaDB(result, opts)
	default:
		return "", model.NewConfigError("unsupported target %q", target)
	}
}
