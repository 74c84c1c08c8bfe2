package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	dbmerge "github.com/uvilor/dbm-merge"
	"github.com/uvilor/dbm-merge/cmd/util"
	"github.com/uvilor/dbm-merge/internal/model"
)

var (
	compareFrom     string
	compareTo       string
	compareSchema   string
	compareFormat   string
	compareNormFile string
	compareNameCase string
	compareDefaults bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Show the structured diff between two schemas",
	Long:  "Load both schemas, normalize them and print the structured diff, either as a per-bucket text summary or as a JSON document with the full diff.",
	RunE:  runCompare,
}

func init() {
	addConnectionFlags(compareCmd, &compareFrom, &compareTo, &compareSchema)
	addNormalizeFlags(compareCmd, &compareNormFile, &compareNameCase, &compareDefaults)
	compareCmd.Flags().StringVar(&compareFormat, "format", "text", "Output format: text, json")
}

func runCompare(cmd *cobra.Command, args []string) error {
	result, err := loadAndDiff(cmd.Context(),
		compareFrom, compareTo, compareSchema,
		compareNormFile, compareNameCase, compareDefaults)
	if err != nil {
		return err
	}

	switch compareFormat {
	case "json":
		document := struct {
			Diff    *dbmerge.DiffResult `json:"diff"`
			Summary dbmerge.DiffSummary `json:"summary"`
		}{Diff: result, Summary: result.Summary()}
		encoded, err := json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("encode diff: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	case "text":
		fmt.Fprint(cmd.OutOrStdout(), result.Summary().String())
	default:
		return model.NewConfigError("unknown format %q", compareFormat)
	}
	return nil
}

// addConnectionFlags registers the connection flags every subcommand shares.
func addConnectionFlags(cmd *cobra.Command, from, to, schema *string) {
	cmd.Flags().StringVar(from, "from", "", "Connection URL for schema A (or "+util.EnvFrom+")")
	cmd.Flags().StringVar(to, "to", "", "Connection URL for schema B (or "+util.EnvTo+")")
	cmd.Flags().StringVar(schema, "schema", "", "Schema name; overrides the URL query parameter (or "+util.EnvSchema+")")
}

func addNormalizeFlags(cmd *cobra.Command, normFile, nameCase *string, defaults *bool) {
	cmd.Flags().StringVar(normFile, "norm-file", "", "YAML file with type-map and name-case options")
	cmd.Flags().StringVar(nameCase, "name-case", "", "Name folding strategy: preserve, lower, upper")
	cmd.Flags().BoolVar(defaults, "normalize-defaults", false, "Canonicalize default expressions before diffing")
}

// resolveRefs applies environment fallbacks and parses both connection URLs.
func resolveRefs(from, to, schema string) (dbmerge.ConnRef, dbmerge.ConnRef, error) {
	from = util.FlagOrEnv(from, util.EnvFrom)
	to = util.FlagOrEnv(to, util.EnvTo)
	schema = util.FlagOrEnv(schema, util.EnvSchema)

	if from == "" || to == "" {
		return dbmerge.ConnRef{}, dbmerge.ConnRef{}, model.NewConfigError("both --from and --to are required")
	}
	refA, err := util.ParseRef(from, schema)
	if err != nil {
		return dbmerge.ConnRef{}, dbmerge.ConnRef{}, err
	}
	refB, err := util.ParseRef(to, schema)
	if err != nil {
		return dbmerge.ConnRef{}, dbmerge.ConnRef{}, err
	}
	return refA, refB, nil
}

func buildNormOptions(normFile, nameCase string, defaults bool) (dbmerge.NormalizeOptions, error) {
	var opts dbmerge.NormalizeOptions
	if normFile != "" {
		var err error
		opts, err = util.LoadNormOptions(normFile)
		if err != nil {
			return opts, err
		}
	}
	if nameCase != "" {
		switch strategy := dbmerge.CaseStrategy(nameCase); strategy {
		case dbmerge.CasePreserve, dbmerge.CaseLower, dbmerge.CaseUpper:
			if opts.NameCase == nil {
				opts.NameCase = &dbmerge.NameCase{}
			}
			opts.NameCase.Strategy = strategy
		default:
			return opts, model.NewConfigError("unknown name-case strategy %q", nameCase)
		}
	}
	if defaults {
		opts.NormalizeDefaults = true
	}
	return opts, nil
}

// loadAndDiff runs the shared pipeline through the engine facade: parallel
// load, normalize, diff.
func loadAndDiff(ctx context.Context, from, to, schema, normFile, nameCase string, defaults bool) (*dbmerge.DiffResult, error) {
	refA, refB, err := resolveRefs(from, to, schema)
	if err != nil {
		return nil, err
	}
	normOpts, err := buildNormOptions(normFile, nameCase, defaults)
	if err != nil {
		return nil, err
	}

	schemaA, schemaB, err := dbmerge.LoadPair(ctx, refA, refB)
	if err != nil {
		return nil, err
	}
	normalizedA := dbmerge.NormalizeSchema(schemaA, normOpts)
	normalizedB := dbmerge.NormalizeSchema(schemaB, normOpts)
	return dbmerge.ComputeDiff(normalizedA, normalizedB), nil
}
