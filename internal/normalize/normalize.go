// Package normalize reduces superficial cross-dialect noise in schema models
// so the differ only reports meaningful deltas. All operations work on a deep
// copy; the input model is never mutated.
package normalize

import (
	"regexp"
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

// CaseStrategy selects how identifier names are folded.
type CaseStrategy string

const (
	CasePreserve CaseStrategy = "preserve"
	CaseLower    CaseStrategy = "lower"
	CaseUpper    CaseStrategy = "upper"
)

// NameCase configures name folding. Names on the ignore list bypass folding.
type NameCase struct {
	Strategy CaseStrategy
	Ignore   []string
}

// Options configures normalization. The zero value folds nothing, keeps
// defaults verbatim and applies only the built-in type synonyms.
type Options struct {
	NameCase          *NameCase
	NormalizeDefaults bool
	TypeMap           map[string]string
}

// builtinTypeMap collapses dialect synonyms to a canonical lowercase token.
// Keys are matched case-insensitively against the bare data type and against
// the full type token (so sized synonyms like tinyint(1) resolve).
var builtinTypeMap = map[string]string{
	"double precision":            "double",
	"character varying":           "varchar",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"integer":                     "int",
	"int4":                        "int",
	"int8":                        "bigint",
	"int2":                        "smallint",
	"tinyint(1)":                  "boolean",
	"bool":                        "boolean",
	"bit(1)":                      "boolean",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Schema returns a normalized deep copy of m.
func Schema(m *model.Schema, opts Options) *model.Schema {
	out := m.Clone()
	n := &normalizer{
		fold:     foldFunc(opts.NameCase),
		types:    mergeTypeMaps(opts.TypeMap),
		defaults: opts.NormalizeDefaults,
	}

	tables := make(map[string]*model.Table, len(out.Tables))
	for _, table := range out.Tables {
		n.table(table)
		tables[table.Name] = table
	}
	out.Tables = tables

	views := make(map[string]*model.View, len(out.Views))
	for _, view := range out.Views {
		view.Name = n.fold(view.Name)
		views[view.Name] = view
	}
	out.Views = views

	routines := make(map[model.RoutineKey]*model.Routine, len(out.Routines))
	for _, routine := range out.Routines {
		routine.Name = n.fold(routine.Name)
		routines[routine.Key()] = routine
	}
	out.Routines = routines

	triggers := make(map[model.TriggerKey]*model.Trigger, len(out.Triggers))
	for _, trigger := range out.Triggers {
		trigger.Name = n.fold(trigger.Name)
		trigger.Table = n.fold(trigger.Table)
		triggers[trigger.Key()] = trigger
	}
	out.Triggers = triggers

	return out
}

type normalizer struct {
	fold     func(string) string
	types    map[string]string
	defaults bool
}

func (n *normalizer) table(table *model.Table) {
	table.Name = n.fold(table.Name)

	for _, column := range table.Columns {
		n.column(column)
	}

	if pk := table.PrimaryKey; pk != nil {
		pk.Name = n.fold(pk.Name)
		for i, col := range pk.Columns {
			pk.Columns[i] = n.fold(col)
		}
	}

	indexes := make(map[string]*model.Index, len(table.Indexes))
	for _, index := range table.Indexes {
		index.Name = n.fold(index.Name)
		for i, col := range index.Columns {
			index.Columns[i] = n.fold(col)
		}
		indexes[index.Name] = index
	}
	table.Indexes = indexes

	checks := make(map[string]*model.Check, len(table.Checks))
	for _, check := range table.Checks {
		check.Name = n.fold(check.Name)
		check.Expression = collapseWhitespace(check.Expression)
		checks[check.Name] = check
	}
	table.Checks = checks

	fks := make(map[string]*model.ForeignKey, len(table.ForeignKeys))
	for _, fk := range table.ForeignKeys {
		fk.Name = n.fold(fk.Name)
		fk.ReferencedTable = n.fold(fk.ReferencedTable)
		for i, col := range fk.Columns {
			fk.Columns[i] = n.fold(col)
		}
		for i, col := range fk.ReferencedColumns {
			fk.ReferencedColumns[i] = n.fold(col)
		}
		fk.OnUpdate = strings.ToUpper(fk.OnUpdate)
		fk.OnDelete = strings.ToUpper(fk.OnDelete)
		fks[fk.Name] = fk
	}
	table.ForeignKeys = fks
}

func (n *normalizer) column(column *model.Column) {
	column.Name = n.fold(column.Name)
	n.applyTypeMap(column)
	if n.defaults && column.Default != nil {
		canonical := CanonicalDefault(*column.Default)
		column.Default = &canonical
	}
}

// applyTypeMap resolves the column type against the synonym map. A full-token
// hit (e.g. tinyint(1)) consumes the size attributes; a bare-type hit keeps
// them, so varchar(255) survives as varchar with length 255.
func (n *normalizer) applyTypeMap(column *model.Column) {
	if canonical, ok := n.types[strings.ToLower(column.TypeToken())]; ok {
		column.DataType = canonical
		column.Length = nil
		column.Precision = nil
		column.Scale = nil
		return
	}
	if canonical, ok := n.types[strings.ToLower(column.DataType)]; ok {
		column.DataType = canonical
	}
}

// CanonicalDefault trims a default expression, strips fully-wrapping
// parentheses iteratively and canonicalizes now() to CURRENT_TIMESTAMP.
func CanonicalDefault(expr string) string {
	out := strings.TrimSpace(expr)
	for wrapped(out) {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	if strings.EqualFold(out, "now()") {
		return "CURRENT_TIMESTAMP"
	}
	return out
}

// wrapped reports whether the expression is fully enclosed by one pair of
// parentheses, i.e. the opening paren at 0 matches the closing paren at the
// end and stripping them leaves something non-empty.
func wrapped(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return len(strings.TrimSpace(s[1:len(s)-1])) > 0
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func foldFunc(nameCase *NameCase) func(string) string {
	if nameCase == nil {
		return func(s string) string { return s }
	}
	ignore := make(map[string]bool, len(nameCase.Ignore))
	for _, name := range nameCase.Ignore {
		ignore[name] = true
	}
	var fold func(string) string
	switch nameCase.Strategy {
	case CaseLower:
		fold = strings.ToLower
	case CaseUpper:
		fold = strings.ToUpper
	default:
		fold = func(s string) string { return s }
	}
	return func(s string) string {
		if ignore[s] {
			return s
		}
		return fold(s)
	}
}

func mergeTypeMaps(user map[string]string) map[string]string {
	merged := make(map[string]string, len(builtinTypeMap)+len(user))
	for from, to := range builtinTypeMap {
		merged[from] = to
	}
	for from, to := range user {
		merged[strings.ToLower(from)] = strings.ToLower(to)
	}
	return merged
}
