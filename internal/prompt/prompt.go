// Package prompt renders a bounded Markdown review prompt for a schema
// comparison, suitable for pasting into an AI reviewer or a merge request.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uvilor/dbm-merge/internal/diff"
)

const (
	maxDiffChars = 1000
	maxDDLChars  = 4000

	truncationMark = "\n... (truncated)"
)

// Build renders the review prompt from a diff result and the generated DDL.
func Build(result *diff.Result, ddl string) (string, error) {
	diffJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode diff: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Schema migration review\n\n")
	b.WriteString("Review the proposed migration below. Check that destructive statements are\n")
	b.WriteString("intentional, that TODO markers are resolved, and that constraint and index\n")
	b.WriteString("changes will not break dependent applications.\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("```\n")
	b.WriteString(result.Summary().String())
	b.WriteString("```\n\n")

	b.WriteString("## Diff (excerpt)\n\n")
	b.WriteString("```json\n")
	b.WriteString(truncate(string(diffJSON), maxDiffChars))
	b.WriteString("\n```\n\n")

	b.WriteString("## Proposed DDL (excerpt)\n\n")
	b.WriteString("```sql\n")
	b.WriteString(truncate(strings.TrimRight(ddl, "\n"), maxDDLChars))
	b.WriteString("\n```\n")

	return b.String(), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMark
}
