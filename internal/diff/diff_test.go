package diff

import (
	"encoding/json"
	"testing"

	"github.com/uvilor/dbm-merge/internal/model"
	"github.com/uvilor/dbm-merge/internal/normalize"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// usersSchema builds a small schema with one users table.
func usersSchema(emailLength int) *model.Schema {
	schema := model.NewSchema("app")
	users := model.NewTable("users")
	users.Columns = []*model.Column{
		{Name: "id", DataType: "bigint", Generated: model.GenerationIdentity},
		{Name: "email", DataType: "varchar", Length: intPtr(emailLength), Nullable: false},
	}
	users.PrimaryKey = &model.PrimaryKey{Name: "users_pkey", Columns: []string{"id"}}
	schema.Tables["users"] = users
	return schema
}

func TestCompute_EmptyDiffIdentity(t *testing.T) {
	a := usersSchema(255)
	b := usersSchema(255)

	result := Compute(a, b)
	if !result.Empty() {
		encoded, _ := json.Marshal(result)
		t.Errorf("Compute(m, m) not empty: %s", encoded)
	}
}

func TestCompute_LengthNarrowingIsTypeChange(t *testing.T) {
	a := usersSchema(255)
	b := usersSchema(128)

	result := Compute(a, b)
	if len(result.Tables.Changed) != 1 {
		t.Fatalf("changed tables = %d; want 1", len(result.Tables.Changed))
	}
	changes := result.Tables.Changed[0].ColumnChanges
	if len(changes) != 1 {
		t.Fatalf("column changes = %d; want 1", len(changes))
	}
	tc := changes[0].TypeChanged
	if tc == nil {
		t.Fatal("TypeChanged missing for length narrowing")
	}
	if tc.From != "varchar(255)" || tc.To != "varchar(128)" {
		t.Errorf("TypeChanged = %+v; want varchar(255) -> varchar(128)", tc)
	}
}

func TestCompute_AddedAndRemovedTables(t *testing.T) {
	a := usersSchema(255)
	b := usersSchema(255)

	auditLog := model.NewTable("audit_log")
	auditLog.Columns = []*model.Column{
		{Name: "id", DataType: "bigint"},
		{Name: "payload", DataType: "jsonb", Nullable: true},
	}
	b.Tables["audit_log"] = auditLog

	legacy := model.NewTable("legacy")
	a.Tables["legacy"] = legacy

	result := Compute(a, b)
	if len(result.Tables.Added) != 1 || result.Tables.Added[0].Name != "audit_log" {
		t.Errorf("added = %+v; want [audit_log]", result.Tables.Added)
	}
	if len(result.Tables.Removed) != 1 || result.Tables.Removed[0].Name != "legacy" {
		t.Errorf("removed = %+v; want [legacy]", result.Tables.Removed)
	}
}

func TestCompute_DirectionSymmetry(t *testing.T) {
	a := usersSchema(255)
	b := usersSchema(255)
	b.Tables["audit_log"] = model.NewTable("audit_log")
	a.Tables["legacy"] = model.NewTable("legacy")
	a.Views["v1"] = &model.View{Name: "v1", Definition: "SELECT 1"}
	b.Views["v2"] = &model.View{Name: "v2", Definition: "SELECT 2"}

	forward := Compute(a, b)
	backward := Compute(b, a)

	names := func(tables []*model.Table) []string {
		out := make([]string, len(tables))
		for i, table := range tables {
			out[i] = table.Name
		}
		return out
	}
	if !equalStrings(names(forward.Tables.Added), names(backward.Tables.Removed)) {
		t.Errorf("diff(a,b).added = %v, diff(b,a).removed = %v; want equal",
			names(forward.Tables.Added), names(backward.Tables.Removed))
	}
	if !equalStrings(names(forward.Tables.Removed), names(backward.Tables.Added)) {
		t.Errorf("diff(a,b).removed = %v, diff(b,a).added = %v; want equal",
			names(forward.Tables.Removed), names(backward.Tables.Added))
	}
	if len(forward.Views.Added) != 1 || len(backward.Views.Removed) != 1 ||
		forward.Views.Added[0].Name != backward.Views.Removed[0].Name {
		t.Errorf("view symmetry broken: added=%+v removed=%+v",
			forward.Views.Added, backward.Views.Removed)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompute_Determinism(t *testing.T) {
	build := func() (*model.Schema, *model.Schema) {
		a := usersSchema(255)
		b := usersSchema(128)
		b.Tables["audit_log"] = model.NewTable("audit_log")
		b.Tables["billing"] = model.NewTable("billing")
		a.Tables["legacy"] = model.NewTable("legacy")
		return a, b
	}

	a1, b1 := build()
	a2, b2 := build()

	first, err := json.Marshal(Compute(a1, b1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Compute(a2, b2))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("equivalent inputs produced different diffs:\n%s\n%s", first, second)
	}
}

func TestCompute_TypeSynonymCollapse(t *testing.T) {
	a := model.NewSchema("app")
	tableA := model.NewTable("t")
	tableA.Columns = []*model.Column{{Name: "n", DataType: "integer"}}
	a.Tables["t"] = tableA

	b := model.NewSchema("app")
	tableB := model.NewTable("t")
	tableB.Columns = []*model.Column{{Name: "n", DataType: "int4"}}
	b.Tables["t"] = tableB

	result := Compute(normalize.Schema(a, normalize.Options{}), normalize.Schema(b, normalize.Options{}))
	if !result.Empty() {
		t.Errorf("integer vs int4 reported as a change after normalization")
	}
}

func TestCompute_DefaultMissingEqualsNull(t *testing.T) {
	build := func(def *string) *model.Schema {
		schema := model.NewSchema("app")
		table := model.NewTable("t")
		table.Columns = []*model.Column{{Name: "c", DataType: "text", Nullable: true, Default: def}}
		schema.Tables["t"] = table
		return schema
	}

	result := Compute(build(nil), build(strPtr("NULL")))
	if !result.Empty() {
		t.Errorf("missing default vs SQL NULL default reported as a change")
	}

	result = Compute(build(strPtr("'x'")), build(nil))
	if result.Empty() {
		t.Errorf("real default vs missing default not reported")
	}
}

func TestCompute_ColumnAttributesReportedIndividually(t *testing.T) {
	a := model.NewSchema("app")
	tableA := model.NewTable("t")
	tableA.Columns = []*model.Column{{
		Name: "c", DataType: "text", Nullable: false,
		Default: strPtr("'x'"), Collation: "en_US",
	}}
	a.Tables["t"] = tableA

	b := model.NewSchema("app")
	tableB := model.NewTable("t")
	tableB.Columns = []*model.Column{{
		Name: "c", DataType: "varchar", Nullable: true,
		Generated: model.GenerationAutoIncrement, Collation: "utf8mb4_general_ci",
	}}
	b.Tables["t"] = tableB

	result := Compute(a, b)
	if len(result.Tables.Changed) != 1 || len(result.Tables.Changed[0].ColumnChanges) != 1 {
		t.Fatalf("want exactly one column change; got %+v", result.Tables.Changed)
	}
	cc := result.Tables.Changed[0].ColumnChanges[0]
	if cc.TypeChanged == nil {
		t.Errorf("TypeChanged missing")
	}
	if cc.NullableChanged == nil || cc.NullableChanged.From != false || cc.NullableChanged.To != true {
		t.Errorf("NullableChanged = %+v; want false -> true", cc.NullableChanged)
	}
	if cc.DefaultChanged == nil {
		t.Errorf("DefaultChanged missing")
	}
	if cc.GeneratedChanged == nil || cc.GeneratedChanged.From != "none" || cc.GeneratedChanged.To != "auto_increment" {
		t.Errorf("GeneratedChanged = %+v; want none -> auto_increment", cc.GeneratedChanged)
	}
	if cc.CollationChanged == nil {
		t.Errorf("CollationChanged missing")
	}
}

func TestCompute_IndexEquality(t *testing.T) {
	build := func(unique bool, using string, columns ...string) *model.Schema {
		schema := model.NewSchema("app")
		table := model.NewTable("t")
		table.Indexes["idx"] = &model.Index{Name: "idx", Unique: unique, Using: using, Columns: columns}
		schema.Tables["t"] = table
		return schema
	}

	// Column order and method case are not significant.
	same := Compute(build(false, "btree", "a", "b"), build(false, "BTREE", "b", "a"))
	if !same.Empty() {
		t.Errorf("index column order or method case reported as a change")
	}

	flipped := Compute(build(true, "btree", "a"), build(false, "btree", "a"))
	if len(flipped.Tables.Changed) != 1 || len(flipped.Tables.Changed[0].IndexChanges) != 1 {
		t.Fatalf("uniqueness flip not reported: %+v", flipped.Tables.Changed)
	}
	ic := flipped.Tables.Changed[0].IndexChanges[0]
	if !ic.From.Unique || ic.To.Unique {
		t.Errorf("IndexChange sides = %+v/%+v; want unique -> non-unique", ic.From, ic.To)
	}
}

func TestCompute_ForeignKeyEquality(t *testing.T) {
	build := func(refTable, onDelete string) *model.Schema {
		schema := model.NewSchema("app")
		table := model.NewTable("t")
		table.ForeignKeys["fk"] = &model.ForeignKey{
			Name: "fk", Columns: []string{"x"},
			ReferencedTable: refTable, ReferencedColumns: []string{"id"},
			OnDelete: onDelete,
		}
		schema.Tables["t"] = table
		return schema
	}

	if !Compute(build("Users", "cascade"), build("users", "CASCADE")).Empty() {
		t.Errorf("case-only FK differences reported as a change")
	}
	if Compute(build("users", "CASCADE"), build("users", "SET NULL")).Empty() {
		t.Errorf("action change not reported")
	}
	if Compute(build("users", "CASCADE"), build("orgs", "CASCADE")).Empty() {
		t.Errorf("referenced table change not reported")
	}
}

func TestCompute_PrimaryKeyChanges(t *testing.T) {
	build := func(pk *model.PrimaryKey) *model.Schema {
		schema := model.NewSchema("app")
		table := model.NewTable("t")
		table.PrimaryKey = pk
		schema.Tables["t"] = table
		return schema
	}

	onlyA := Compute(build(&model.PrimaryKey{Columns: []string{"id"}}), build(nil))
	if len(onlyA.Tables.Changed) != 1 || onlyA.Tables.Changed[0].PrimaryKeyChange == nil {
		t.Fatalf("missing primary key change when only A has one")
	}
	pkc := onlyA.Tables.Changed[0].PrimaryKeyChange
	if pkc.From == nil || pkc.To != nil {
		t.Errorf("PrimaryKeyChange = %+v; want From set, To nil", pkc)
	}

	// Position-insensitive comparison.
	same := Compute(
		build(&model.PrimaryKey{Columns: []string{"a", "b"}}),
		build(&model.PrimaryKey{Columns: []string{"b", "a"}}))
	if !same.Empty() {
		t.Errorf("primary key column order reported as a change")
	}
}

func TestCompute_RoutinesKeyedByKindAndName(t *testing.T) {
	a := model.NewSchema("app")
	fn := &model.Routine{Kind: model.RoutineKindFunction, Name: "tally", Body: "BODY A"}
	a.Routines[fn.Key()] = fn

	b := model.NewSchema("app")
	proc := &model.Routine{Kind: model.RoutineKindProcedure, Name: "tally", Body: "BODY A"}
	b.Routines[proc.Key()] = proc

	result := Compute(a, b)
	if len(result.Routines.Added) != 1 || len(result.Routines.Removed) != 1 || len(result.Routines.Changed) != 0 {
		t.Errorf("function vs procedure of same name not treated as distinct: %+v", result.Routines)
	}
}

func TestCompute_RoutineBodyChange(t *testing.T) {
	build := func(body string) *model.Schema {
		schema := model.NewSchema("app")
		routine := &model.Routine{Kind: model.RoutineKindFunction, Name: "tally", Body: body}
		schema.Routines[routine.Key()] = routine
		return schema
	}

	result := Compute(build("BODY A"), build("BODY B"))
	if len(result.Routines.Changed) != 1 {
		t.Fatalf("routine body change not reported: %+v", result.Routines)
	}
	rc := result.Routines.Changed[0]
	if rc.From.Body != "BODY A" || rc.To.Body != "BODY B" {
		t.Errorf("RoutineChange bodies = %q/%q; want BODY A/BODY B", rc.From.Body, rc.To.Body)
	}
}

func TestCompute_TriggersKeyedByTableAndName(t *testing.T) {
	build := func(table string, events ...model.TriggerEvent) *model.Schema {
		schema := model.NewSchema("app")
		trigger := &model.Trigger{
			Table: table, Name: "audit",
			Timing: model.TriggerTimingAfter, Events: events, Body: "EXECUTE FUNCTION audit()",
		}
		schema.Triggers[trigger.Key()] = trigger
		return schema
	}

	moved := Compute(build("users", model.TriggerEventInsert), build("orders", model.TriggerEventInsert))
	if len(moved.Triggers.Added) != 1 || len(moved.Triggers.Removed) != 1 {
		t.Errorf("same trigger name on different tables not treated as distinct: %+v", moved.Triggers)
	}

	// Event order is not significant.
	same := Compute(
		build("users", model.TriggerEventInsert, model.TriggerEventUpdate),
		build("users", model.TriggerEventUpdate, model.TriggerEventInsert))
	if !same.Empty() {
		t.Errorf("trigger event order reported as a change")
	}

	widened := Compute(
		build("users", model.TriggerEventInsert),
		build("users", model.TriggerEventInsert, model.TriggerEventDelete))
	if len(widened.Triggers.Changed) != 1 {
		t.Errorf("trigger event set change not reported: %+v", widened.Triggers)
	}
}

func TestCompute_DefensiveCopies(t *testing.T) {
	a := usersSchema(255)
	b := usersSchema(255)
	b.Tables["audit_log"] = model.NewTable("audit_log")

	result := Compute(a, b)
	b.Tables["audit_log"].Name = "mutated"

	if result.Tables.Added[0].Name != "audit_log" {
		t.Errorf("diff result aliases the input model")
	}
}
