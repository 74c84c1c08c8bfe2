package diff

import (
	"fmt"
	"strings"
)

// Summary carries per-bucket counts for display.
type Summary struct {
	Tables   BucketCounts `json:"tables"`
	Views    BucketCounts `json:"views"`
	Routines BucketCounts `json:"routines"`
	Triggers BucketCounts `json:"triggers"`
}

// BucketCounts counts the entries of one diff bucket.
type BucketCounts struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Changed int `json:"changed"`
}

// Summary computes per-bucket counts for the result.
func (r *Result) Summary() Summary {
	return Summary{
		Tables: BucketCounts{
			Added:   len(r.Tables.Added),
			Removed: len(r.Tables.Removed),
			Changed: len(r.Tables.Changed),
		},
		Views: BucketCounts{
			Added:   len(r.Views.Added),
			Removed: len(r.Views.Removed),
			Changed: len(r.Views.Changed),
		},
		Routines: BucketCounts{
			Added:   len(r.Routines.Added),
			Removed: len(r.Routines.Removed),
			Changed: len(r.Routines.Changed),
		},
		Triggers: BucketCounts{
			Added:   len(r.Triggers.Added),
			Removed: len(r.Triggers.Removed),
			Changed: len(r.Triggers.Changed),
		},
	}
}

// String renders the summary as the human-readable compare output.
func (s Summary) String() string {
	var b strings.Builder
	writeBucket := func(name string, counts BucketCounts) {
		fmt.Fprintf(&b, "%-9s %d added, %d removed, %d changed\n",
			name+":", counts.Added, counts.Removed, counts.Changed)
	}
	writeBucket("tables", s.Tables)
	writeBucket("views", s.Views)
	writeBucket("routines", s.Routines)
	writeBucket("triggers", s.Triggers)
	return b.String()
}
