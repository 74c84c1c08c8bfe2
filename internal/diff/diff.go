// Package diff computes a structured, symmetric description of the delta
// between two normalized schema models. Added means present only in B,
// removed means present only in A; every change carries both sides so the
// generators can render either direction.
package diff

import (
	"regexp"
	"sort"
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

// Result is the complete diff between two schema models.
type Result struct {
	Tables   TablesDiff   `json:"tables"`
	Views    ViewsDiff    `json:"views"`
	Routines RoutinesDiff `json:"routines"`
	Triggers TriggersDiff `json:"triggers"`
}

// TablesDiff groups table-level additions, removals and changes.
type TablesDiff struct {
	Added   []*model.Table `json:"added"`
	Removed []*model.Table `json:"removed"`
	Changed []*TableChange `json:"changed"`
}

// ViewsDiff groups view-level additions, removals and changes.
type ViewsDiff struct {
	Added   []*model.View `json:"added"`
	Removed []*model.View `json:"removed"`
	Changed []*ViewChange `json:"changed"`
}

// RoutinesDiff groups routine-level additions, removals and changes. Routines
// are keyed by (kind, name).
type RoutinesDiff struct {
	Added   []*model.Routine `json:"added"`
	Removed []*model.Routine `json:"removed"`
	Changed []*RoutineChange `json:"changed"`
}

// TriggersDiff groups trigger-level additions, removals and changes. Triggers
// are keyed by (table, name).
type TriggersDiff struct {
	Added   []*model.Trigger `json:"added"`
	Removed []*model.Trigger `json:"removed"`
	Changed []*TriggerChange `json:"changed"`
}

// ViewChange records a view present in both models with differing definitions.
type ViewChange struct {
	Name string      `json:"name"`
	From *model.View `json:"from"`
	To   *model.View `json:"to"`
}

// RoutineChange records a routine present in both models with a differing
// body or language.
type RoutineChange struct {
	Kind model.RoutineKind `json:"kind"`
	Name string            `json:"name"`
	From *model.Routine    `json:"from"`
	To   *model.Routine    `json:"to"`
}

// TriggerChange records a trigger present in both models with differing
// timing, events or body.
type TriggerChange struct {
	Table string         `json:"table"`
	Name  string         `json:"name"`
	From  *model.Trigger `json:"from"`
	To    *model.Trigger `json:"to"`
}

// Compute diffs two normalized schema models. Inputs are not mutated; the
// result holds defensive copies so the source models can be discarded.
func Compute(a, b *model.Schema) *Result {
	result := &Result{}
	result.Tables = diffTables(a, b)
	result.Views = diffViews(a, b)
	result.Routines = diffRoutines(a, b)
	result.Triggers = diffTriggers(a, b)
	return result
}

// Empty reports whether the diff records no difference at all.
func (r *Result) Empty() bool {
	return len(r.Tables.Added) == 0 && len(r.Tables.Removed) == 0 && len(r.Tables.Changed) == 0 &&
		len(r.Views.Added) == 0 && len(r.Views.Removed) == 0 && len(r.Views.Changed) == 0 &&
		len(r.Routines.Added) == 0 && len(r.Routines.Removed) == 0 && len(r.Routines.Changed) == 0 &&
		len(r.Triggers.Added) == 0 && len(r.Triggers.Removed) == 0 && len(r.Triggers.Changed) == 0
}

func diffViews(a, b *model.Schema) ViewsDiff {
	var out ViewsDiff
	for _, name := range b.ViewNames() {
		if _, ok := a.Views[name]; !ok {
			out.Added = append(out.Added, b.Views[name].Clone())
		}
	}
	for _, name := range a.ViewNames() {
		viewA := a.Views[name]
		viewB, ok := b.Views[name]
		if !ok {
			out.Removed = append(out.Removed, viewA.Clone())
			continue
		}
		if !viewsEqual(viewA, viewB) {
			out.Changed = append(out.Changed, &ViewChange{
				Name: name,
				From: viewA.Clone(),
				To:   viewB.Clone(),
			})
		}
	}
	return out
}

func diffRoutines(a, b *model.Schema) RoutinesDiff {
	var out RoutinesDiff
	for _, key := range b.RoutineKeys() {
		if _, ok := a.Routines[key]; !ok {
			out.Added = append(out.Added, b.Routines[key].Clone())
		}
	}
	for _, key := range a.RoutineKeys() {
		routineA := a.Routines[key]
		routineB, ok := b.Routines[key]
		if !ok {
			out.Removed = append(out.Removed, routineA.Clone())
			continue
		}
		if !routinesEqual(routineA, routineB) {
			out.Changed = append(out.Changed, &RoutineChange{
				Kind: key.Kind,
				Name: key.Name,
				From: routineA.Clone(),
				To:   routineB.Clone(),
			})
		}
	}
	return out
}

func diffTriggers(a, b *model.Schema) TriggersDiff {
	var out TriggersDiff
	for _, key := range b.TriggerKeys() {
		if _, ok := a.Triggers[key]; !ok {
			out.Added = append(out.Added, b.Triggers[key].Clone())
		}
	}
	for _, key := range a.TriggerKeys() {
		triggerA := a.Triggers[key]
		triggerB, ok := b.Triggers[key]
		if !ok {
			out.Removed = append(out.Removed, triggerA.Clone())
			continue
		}
		if !triggersEqual(triggerA, triggerB) {
			out.Changed = append(out.Changed, &TriggerChange{
				Table: key.Table,
				Name:  key.Name,
				From:  triggerA.Clone(),
				To:    triggerB.Clone(),
			})
		}
	}
	return out
}

var expressionWhitespace = regexp.MustCompile(`\s+`)

func normalizeExpression(s string) string {
	return strings.TrimSpace(expressionWhitespace.ReplaceAllString(s, " "))
}

func viewsEqual(a, b *model.View) bool {
	return normalizeExpression(a.Definition) == normalizeExpression(b.Definition)
}

func routinesEqual(a, b *model.Routine) bool {
	return strings.EqualFold(a.Language, b.Language) &&
		strings.TrimSpace(a.Body) == strings.TrimSpace(b.Body)
}

func triggersEqual(a, b *model.Trigger) bool {
	if a.Timing != b.Timing {
		return false
	}
	if !stringSetsEqual(eventStrings(a.Events), eventStrings(b.Events)) {
		return false
	}
	return strings.TrimSpace(a.Body) == strings.TrimSpace(b.Body)
}

func eventStrings(events []model.TriggerEvent) []string {
	out := make([]string, len(events))
	for i, event := range events {
		out[i] = string(event)
	}
	return out
}

// stringSetsEqual compares two column (or event) lists as sorted sets of
// lowercased names; order and case are not significant.
func stringSetsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := lowerSorted(a)
	bs := lowerSorted(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func lowerSorted(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	sort.Strings(out)
	return out
}
