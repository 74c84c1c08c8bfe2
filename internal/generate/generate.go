// Package generate renders dialect-specific migration scripts from a diff
// result. The emission order is fixed; safe mode comments out destructive
// statements instead of suppressing them.
package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uvilor/dbm-merge/internal/diff"
	"github.com/uvilor/dbm-merge/internal/model"
)

// Direction selects which side of the diff the script treats as the desired
// end state. AtoB makes the working database look like A; BtoA the mirror.
type Direction string

const (
	DirectionAtoB Direction = "AtoB"
	DirectionBtoA Direction = "BtoA"
)

// Options configures script generation.
type Options struct {
	Direction       Direction
	WithTransaction bool
	SafeMode        bool
	Cascade         bool
	IfExists        bool
}

const safeModeBanner = "-- SAFE MODE: destructive statements are commented out; review before executing."

// dialect supplies the statement primitives that differ between engines. The
// emission order and direction handling live in the shared engine.
type dialect interface {
	begin() string
	quote(ident string) string
	columnClause(c *model.Column) string
	columnMarkers(table string, c *model.Column) []string
	tableSuffix() string
	dropIndex(table, index string, opts Options) string
	dropTrigger(t *model.Trigger, opts Options) string
	alterColumnType(table string, c *model.Column) string
	alterColumnNullable(table string, c *model.Column) string
	alterColumnDefault(table, column string, def *string) string
	dropPrimaryKey(table string, pk *model.PrimaryKey) string
	addPrimaryKey(table string, pk *model.PrimaryKey) string
}

// Postgres renders the migration script for a PostgreSQL target.
func Postgres(r *diff.Result, opts Options) (string, error) {
	return run(&postgresDialect{}, r, opts)
}

// MariaDB renders the migration script for a MariaDB target.
func MariaDB(r *diff.Result, opts Options) (string, error) {
	return run(&mariadbDialect{}, r, opts)
}

func run(d dialect, r *diff.Result, opts Options) (string, error) {
	switch opts.Direction {
	case DirectionAtoB, DirectionBtoA:
	default:
		return "", &model.GenerationError{Reason: fmt.Sprintf("unknown direction %q", opts.Direction)}
	}

	e := &emitter{dialect: d, opts: opts}

	// Tables present only on the desired side get created; tables present
	// only on the working side get dropped.
	var creates, drops []*model.Table
	if opts.Direction == DirectionAtoB {
		creates, drops = r.Tables.Removed, r.Tables.Added
	} else {
		creates, drops = r.Tables.Added, r.Tables.Removed
	}

	if opts.WithTransaction {
		e.add(d.begin())
	}
	if opts.SafeMode && len(drops) > 0 {
		e.comment(safeModeBanner)
	}

	for _, table := range reverseTables(sortTablesByDependency(drops)) {
		e.dropTable(table)
	}
	for _, table := range sortTablesByDependency(creates) {
		e.createTable(table)
	}
	for _, change := range r.Tables.Changed {
		e.changeTable(change)
	}

	e.views(r.Views)
	e.routines(r.Routines)
	e.triggers(r.Triggers)

	if opts.WithTransaction {
		e.add("COMMIT;")
	}
	return e.render(), nil
}

// statement is one emitted script unit. Destructive statements are commented
// out under safe mode; comments pass through untouched.
type statement struct {
	text        string
	destructive bool
}

type emitter struct {
	dialect dialect
	opts    Options
	stmts   []statement
}

func (e *emitter) add(text string) {
	e.stmts = append(e.stmts, statement{text: text})
}

func (e *emitter) drop(text string) {
	e.stmts = append(e.stmts, statement{text: text, destructive: true})
}

func (e *emitter) comment(text string) {
	e.stmts = append(e.stmts, statement{text: text})
}

func (e *emitter) todo(format string, args ...any) {
	e.comment("-- TODO: " + fmt.Sprintf(format, args...))
}

// render joins statements with one blank line between every two, commenting
// out destructive ones when safe mode is on.
func (e *emitter) render() string {
	parts := make([]string, 0, len(e.stmts))
	for _, st := range e.stmts {
		if st.destructive && e.opts.SafeMode {
			parts = append(parts, commentOut(st.text))
		} else {
			parts = append(parts, st.text)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func commentOut(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "-- " + line
	}
	return strings.Join(lines, "\n")
}

func (e *emitter) ifExists() string {
	if e.opts.IfExists {
		return "IF EXISTS "
	}
	return ""
}

func (e *emitter) cascade() string {
	if e.opts.Cascade {
		return " CASCADE"
	}
	return ""
}

func (e *emitter) dropTable(table *model.Table) {
	q := e.dialect.quote
	e.drop(fmt.Sprintf("DROP TABLE %s%s%s;", e.ifExists(), q(table.Name), e.cascade()))
}

func (e *emitter) createTable(table *model.Table) {
	q := e.dialect.quote
	var body []string
	for _, column := range table.Columns {
		body = append(body, "    "+e.dialect.columnClause(column))
	}
	if pk := table.PrimaryKey; pk != nil {
		body = append(body, "    PRIMARY KEY ("+e.quotedList(pk.Columns)+")")
	}
	for _, name := range table.CheckNames() {
		check := table.Checks[name]
		body = append(body, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)", q(check.Name), check.Expression))
	}
	for _, name := range table.ForeignKeyNames() {
		body = append(body, "    "+e.foreignKeyClause(table.ForeignKeys[name]))
	}

	e.add(fmt.Sprintf("CREATE TABLE %s (\n%s\n)%s;",
		q(table.Name), strings.Join(body, ",\n"), e.dialect.tableSuffix()))

	for _, column := range table.Columns {
		for _, marker := range e.dialect.columnMarkers(table.Name, column) {
			e.comment(marker)
		}
	}
	for _, name := range table.IndexNames() {
		e.createIndex(table.Name, table.Indexes[name])
	}
}

func (e *emitter) foreignKeyClause(fk *model.ForeignKey) string {
	q := e.dialect.quote
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		q(fk.Name), e.quotedList(fk.Columns), q(fk.ReferencedTable), e.quotedList(fk.ReferencedColumns))
	if fk.OnUpdate != "" {
		clause += " ON UPDATE " + fk.OnUpdate
	}
	if fk.OnDelete != "" {
		clause += " ON DELETE " + fk.OnDelete
	}
	return clause
}

func (e *emitter) createIndex(table string, index *model.Index) {
	q := e.dialect.quote
	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}
	using := ""
	if index.Using != "" {
		using = " USING " + index.Using
	}
	e.add(fmt.Sprintf("CREATE %sINDEX %s ON %s%s (%s);",
		unique, q(index.Name), q(table), using, e.quotedList(index.Columns)))
}

func (e *emitter) quotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = e.dialect.quote(name)
	}
	return strings.Join(quoted, ", ")
}

// changeTable emits the per-table sequence: column drops, column adds, column
// alters, index drops, index creates, then constraint reconciliation.
func (e *emitter) changeTable(change *diff.TableChange) {
	q := e.dialect.quote
	table := change.Name
	atob := e.opts.Direction == DirectionAtoB

	dropColumns, addColumns := change.AddedColumns, change.RemovedColumns
	if !atob {
		dropColumns, addColumns = change.RemovedColumns, change.AddedColumns
	}
	for _, column := range dropColumns {
		e.drop(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s%s;", q(table), e.ifExists(), q(column.Name)))
	}
	for _, column := range addColumns {
		e.add(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", q(table), e.dialect.columnClause(column)))
		for _, marker := range e.dialect.columnMarkers(table, column) {
			e.comment(marker)
		}
	}
	for _, cc := range change.ColumnChanges {
		e.alterColumn(table, cc)
	}

	dropIndexes, addIndexes := change.AddedIndexes, change.RemovedIndexes
	if !atob {
		dropIndexes, addIndexes = change.RemovedIndexes, change.AddedIndexes
	}
	for _, index := range dropIndexes {
		e.drop(e.dialect.dropIndex(table, index.Name, e.opts))
	}
	for _, ic := range change.IndexChanges {
		e.drop(e.dialect.dropIndex(table, ic.Name, e.opts))
	}
	for _, index := range addIndexes {
		e.createIndex(table, index)
	}
	for _, ic := range change.IndexChanges {
		e.createIndex(table, e.desiredIndex(ic))
	}

	e.changeChecks(table, change)
	e.changeForeignKeys(table, change)

	if pkc := change.PrimaryKeyChange; pkc != nil {
		current, desired := pkc.To, pkc.From
		if !atob {
			current, desired = pkc.From, pkc.To
		}
		if current != nil {
			e.drop(e.dialect.dropPrimaryKey(table, current))
		}
		if desired != nil {
			e.add(e.dialect.addPrimaryKey(table, desired))
		}
	}
}

func (e *emitter) desiredIndex(ic *diff.IndexChange) *model.Index {
	if e.opts.Direction == DirectionAtoB {
		return ic.From
	}
	return ic.To
}

func (e *emitter) alterColumn(table string, cc *diff.ColumnChange) {
	desired := cc.From
	if e.opts.Direction == DirectionBtoA {
		desired = cc.To
	}

	if cc.TypeChanged != nil {
		e.add(e.dialect.alterColumnType(table, desired))
		e.todo("verify casts for %s", cc.Name)
	}
	if cc.NullableChanged != nil {
		e.add(e.dialect.alterColumnNullable(table, desired))
	}
	if cc.DefaultChanged != nil {
		e.add(e.dialect.alterColumnDefault(table, cc.Name, desired.Default))
	}
	if cc.GeneratedChanged != nil {
		e.todo("reconcile generation strategy for %s", cc.Name)
	}
	if cc.CollationChanged != nil {
		e.todo("adjust collation for %s", cc.Name)
	}
}

func (e *emitter) changeChecks(table string, change *diff.TableChange) {
	q := e.dialect.quote
	atob := e.opts.Direction == DirectionAtoB

	dropChecks, addChecks := change.AddedChecks, change.RemovedChecks
	if !atob {
		dropChecks, addChecks = change.RemovedChecks, change.AddedChecks
	}
	for _, check := range dropChecks {
		e.add(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", q(table), e.ifExists(), q(check.Name)))
	}
	for _, cc := range change.CheckChanges {
		e.add(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", q(table), e.ifExists(), q(cc.Name)))
	}
	for _, check := range addChecks {
		e.add(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", q(table), q(check.Name), check.Expression))
	}
	for _, cc := range change.CheckChanges {
		desired := cc.From
		if !atob {
			desired = cc.To
		}
		e.add(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);", q(table), q(desired.Name), desired.Expression))
	}
}

func (e *emitter) changeForeignKeys(table string, change *diff.TableChange) {
	q := e.dialect.quote
	atob := e.opts.Direction == DirectionAtoB

	dropFKs, addFKs := change.AddedForeignKeys, change.RemovedForeignKeys
	if !atob {
		dropFKs, addFKs = change.RemovedForeignKeys, change.AddedForeignKeys
	}
	for _, fk := range dropFKs {
		e.add(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", q(table), e.ifExists(), q(fk.Name)))
	}
	for _, fc := range change.ForeignKeyChanges {
		e.add(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s%s;", q(table), e.ifExists(), q(fc.Name)))
	}
	for _, fk := range addFKs {
		e.add(fmt.Sprintf("ALTER TABLE %s ADD %s;", q(table), e.foreignKeyClause(fk)))
	}
	for _, fc := range change.ForeignKeyChanges {
		desired := fc.From
		if !atob {
			desired = fc.To
		}
		e.add(fmt.Sprintf("ALTER TABLE %s ADD %s;", q(table), e.foreignKeyClause(desired)))
	}
}

func (e *emitter) views(v diff.ViewsDiff) {
	q := e.dialect.quote
	atob := e.opts.Direction == DirectionAtoB

	dropViews, createViews := v.Added, v.Removed
	if !atob {
		dropViews, createViews = v.Removed, v.Added
	}
	for _, view := range dropViews {
		e.drop(fmt.Sprintf("DROP VIEW %s%s%s;", e.ifExists(), q(view.Name), e.cascade()))
	}
	for _, view := range createViews {
		e.add(fmt.Sprintf("CREATE VIEW %s AS %s;", q(view.Name), strings.TrimSuffix(strings.TrimSpace(view.Definition), ";")))
	}
	for _, vc := range v.Changed {
		e.todo("view %s definition changed; drop and recreate manually.", vc.Name)
	}
}

func (e *emitter) routines(r diff.RoutinesDiff) {
	q := e.dialect.quote
	atob := e.opts.Direction == DirectionAtoB

	dropRoutines, createRoutines := r.Added, r.Removed
	if !atob {
		dropRoutines, createRoutines = r.Removed, r.Added
	}
	for _, routine := range dropRoutines {
		e.drop(fmt.Sprintf("DROP %s %s%s;", routineKeyword(routine.Kind), e.ifExists(), q(routine.Name)))
	}
	for _, routine := range createRoutines {
		// The catalog records the body but not the full signature; recreation
		// is a human step.
		e.todo("recreate %s %s from its source definition.", strings.ToLower(routineKeyword(routine.Kind)), routine.Name)
	}
	for _, rc := range r.Changed {
		e.todo("routine %s definition changed; drop and recreate manually.", rc.Name)
	}
}

func routineKeyword(kind model.RoutineKind) string {
	if kind == model.RoutineKindProcedure {
		return "PROCEDURE"
	}
	return "FUNCTION"
}

func (e *emitter) triggers(t diff.TriggersDiff) {
	atob := e.opts.Direction == DirectionAtoB

	dropTriggers, createTriggers := t.Added, t.Removed
	if !atob {
		dropTriggers, createTriggers = t.Removed, t.Added
	}
	for _, trigger := range dropTriggers {
		e.drop(e.dialect.dropTrigger(trigger, e.opts))
	}
	for _, trigger := range createTriggers {
		e.createTrigger(trigger)
	}
	for _, tc := range t.Changed {
		e.todo("trigger %s on %s definition changed; drop and recreate manually.", tc.Name, tc.Table)
	}
}

func (e *emitter) createTrigger(trigger *model.Trigger) {
	q := e.dialect.quote
	events := make([]string, len(trigger.Events))
	for i, event := range orderedEvents(trigger.Events) {
		events[i] = strings.ToUpper(string(event))
	}
	e.add(fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH ROW %s;",
		q(trigger.Name),
		strings.ToUpper(string(trigger.Timing)),
		strings.Join(events, " OR "),
		q(trigger.Table),
		strings.TrimSuffix(strings.TrimSpace(trigger.Body), ";")))
}

// orderedEvents fixes the event order as insert, update, delete regardless of
// catalog ordering.
func orderedEvents(events []model.TriggerEvent) []model.TriggerEvent {
	rank := map[model.TriggerEvent]int{
		model.TriggerEventInsert: 0,
		model.TriggerEventUpdate: 1,
		model.TriggerEventDelete: 2,
	}
	out := append([]model.TriggerEvent(nil), events...)
	sort.Slice(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}
