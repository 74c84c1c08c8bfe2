package load

import (
	"fmt"
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

// parseIndexDef recovers an index model from a pg_indexes.indexdef statement:
//
//	CREATE [UNIQUE] INDEX name ON [schema.]table [USING method] (col1, "Col2", ...) [WHERE ...]
//
// Column names are stripped of quotes and of per-column ordering options. The
// partial-index predicate, if any, is ignored.
func parseIndexDef(name, def string) (*model.Index, error) {
	index := &model.Index{Name: name}

	upper := strings.ToUpper(def)
	if !strings.HasPrefix(upper, "CREATE ") {
		return nil, fmt.Errorf("unexpected indexdef %q", def)
	}
	index.Unique = strings.HasPrefix(upper, "CREATE UNIQUE INDEX ")

	onPos := strings.Index(upper, " ON ")
	if onPos < 0 {
		return nil, fmt.Errorf("indexdef %q has no ON clause", def)
	}
	rest := def[onPos+len(" ON "):]
	restUpper := upper[onPos+len(" ON "):]

	if usingPos := strings.Index(restUpper, " USING "); usingPos >= 0 {
		afterUsing := strings.TrimSpace(rest[usingPos+len(" USING "):])
		if end := strings.IndexAny(afterUsing, " ("); end >= 0 {
			index.Using = afterUsing[:end]
		} else {
			index.Using = afterUsing
		}
	}

	columnList, err := parenGroup(rest)
	if err != nil {
		return nil, fmt.Errorf("indexdef %q: %w", def, err)
	}
	for _, raw := range splitTopLevel(columnList) {
		index.Columns = append(index.Columns, cleanIndexColumn(raw))
	}
	if len(index.Columns) == 0 {
		return nil, fmt.Errorf("indexdef %q has an empty column list", def)
	}
	return index, nil
}

// parenGroup extracts the contents of the first balanced parenthesized group.
func parenGroup(s string) (string, error) {
	start := strings.IndexByte(s, '(')
	if start < 0 {
		return "", fmt.Errorf("no column list")
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[start+1 : i], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced parentheses")
}

// splitTopLevel splits on commas that are not nested inside parentheses, so
// expression columns like lower(email) stay whole.
func splitTopLevel(s string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// cleanIndexColumn strips quoting and per-column options (DESC, NULLS FIRST,
// operator classes) from one column entry, keeping expressions intact.
func cleanIndexColumn(raw string) string {
	col := strings.TrimSpace(raw)
	if strings.HasPrefix(col, "\"") {
		if end := strings.Index(col[1:], "\""); end >= 0 {
			return strings.ReplaceAll(col[1:end+1], "\"\"", "\"")
		}
	}
	if strings.HasPrefix(col, "(") || strings.Contains(col, "(") {
		// Expression column; keep the expression text as the key.
		return col
	}
	if space := strings.IndexByte(col, ' '); space >= 0 {
		col = col[:space]
	}
	return col
}
