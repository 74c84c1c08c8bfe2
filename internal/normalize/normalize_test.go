package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/uvilor/dbm-merge/internal/model"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func sampleSchema() *model.Schema {
	schema := model.NewSchema("app")

	users := model.NewTable("Users")
	users.Columns = []*model.Column{
		{Name: "ID", DataType: "integer", Nullable: false, Generated: model.GenerationIdentity},
		{Name: "Email", DataType: "character varying", Length: intPtr(255), Nullable: false},
		{Name: "CreatedAt", DataType: "timestamp without time zone", Nullable: true, Default: strPtr("(now())")},
	}
	users.PrimaryKey = &model.PrimaryKey{Name: "Users_pkey", Columns: []string{"ID"}}
	users.Indexes["Users_Email_key"] = &model.Index{
		Name: "Users_Email_key", Unique: true, Columns: []string{"Email"}, Using: "btree",
	}
	users.Checks["Users_email_check"] = &model.Check{
		Name:       "Users_email_check",
		Expression: "email   <>\n ''",
	}
	users.ForeignKeys["Users_org_fk"] = &model.ForeignKey{
		Name:              "Users_org_fk",
		Columns:           []string{"OrgID"},
		ReferencedTable:   "Orgs",
		ReferencedColumns: []string{"ID"},
		OnUpdate:          "cascade",
		OnDelete:          "set null",
	}
	schema.Tables["Users"] = users

	schema.Views["ActiveUsers"] = &model.View{Name: "ActiveUsers", Definition: "SELECT 1"}
	routine := &model.Routine{Kind: model.RoutineKindFunction, Name: "Tally", Language: "plpgsql", Body: "BEGIN END"}
	schema.Routines[routine.Key()] = routine
	trigger := &model.Trigger{
		Table: "Users", Name: "Users_audit",
		Timing: model.TriggerTimingAfter,
		Events: []model.TriggerEvent{model.TriggerEventInsert},
		Body:   "EXECUTE FUNCTION audit()",
	}
	schema.Triggers[trigger.Key()] = trigger

	return schema
}

func lowerOptions() Options {
	return Options{
		NameCase:          &NameCase{Strategy: CaseLower},
		NormalizeDefaults: true,
	}
}

func TestSchema_DoesNotMutateInput(t *testing.T) {
	input := sampleSchema()
	snapshot := input.Clone()

	Schema(input, lowerOptions())

	if diff := cmp.Diff(snapshot, input); diff != "" {
		t.Errorf("input mutated by normalization (-before +after):\n%s", diff)
	}
}

func TestSchema_Idempotent(t *testing.T) {
	opts := lowerOptions()
	once := Schema(sampleSchema(), opts)
	twice := Schema(once, opts)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("normalize(normalize(m)) != normalize(m) (-once +twice):\n%s", diff)
	}
}

func TestSchema_NameFolding(t *testing.T) {
	out := Schema(sampleSchema(), lowerOptions())

	users, ok := out.Tables["users"]
	if !ok {
		t.Fatalf("table users missing after folding; have %v", out.TableNames())
	}
	if users.Column("email") == nil {
		t.Errorf("column email missing after folding")
	}
	if _, ok := users.Indexes["users_email_key"]; !ok {
		t.Errorf("index users_email_key missing after folding; have %v", users.IndexNames())
	}
	fk, ok := users.ForeignKeys["users_org_fk"]
	if !ok {
		t.Fatalf("foreign key users_org_fk missing after folding")
	}
	if fk.ReferencedTable != "orgs" {
		t.Errorf("referenced table = %q; want orgs", fk.ReferencedTable)
	}
	if fk.OnUpdate != "CASCADE" || fk.OnDelete != "SET NULL" {
		t.Errorf("actions = %q/%q; want CASCADE/SET NULL", fk.OnUpdate, fk.OnDelete)
	}
	if _, ok := out.Views["activeusers"]; !ok {
		t.Errorf("view activeusers missing after folding; have %v", out.ViewNames())
	}
	key := model.RoutineKey{Kind: model.RoutineKindFunction, Name: "tally"}
	if _, ok := out.Routines[key]; !ok {
		t.Errorf("routine tally missing after folding")
	}
	trigKey := model.TriggerKey{Table: "users", Name: "users_audit"}
	if _, ok := out.Triggers[trigKey]; !ok {
		t.Errorf("trigger users_audit missing after folding")
	}
}

func TestSchema_NameFoldingIgnoreList(t *testing.T) {
	opts := Options{NameCase: &NameCase{Strategy: CaseLower, Ignore: []string{"Users"}}}
	out := Schema(sampleSchema(), opts)

	if _, ok := out.Tables["Users"]; !ok {
		t.Errorf("ignored name Users was folded; have %v", out.TableNames())
	}
}

func TestSchema_TypeSynonyms(t *testing.T) {
	tests := []struct {
		name   string
		column model.Column
		want   string
	}{
		{"integer", model.Column{Name: "a", DataType: "integer"}, "int"},
		{"int4", model.Column{Name: "a", DataType: "int4"}, "int"},
		{"int8", model.Column{Name: "a", DataType: "int8"}, "bigint"},
		{"int2", model.Column{Name: "a", DataType: "int2"}, "smallint"},
		{"double precision", model.Column{Name: "a", DataType: "double precision"}, "double"},
		{"bool", model.Column{Name: "a", DataType: "bool"}, "boolean"},
		{"timestamp without tz", model.Column{Name: "a", DataType: "timestamp without time zone"}, "timestamp"},
		{"timestamp with tz", model.Column{Name: "a", DataType: "timestamp with time zone"}, "timestamptz"},
		{"case insensitive", model.Column{Name: "a", DataType: "INTEGER"}, "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := model.NewSchema("app")
			table := model.NewTable("t")
			column := tt.column
			table.Columns = []*model.Column{&column}
			schema.Tables["t"] = table

			out := Schema(schema, Options{})
			if got := out.Tables["t"].Columns[0].DataType; got != tt.want {
				t.Errorf("DataType = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestSchema_SizedSynonymsConsumeSize(t *testing.T) {
	schema := model.NewSchema("app")
	table := model.NewTable("t")
	table.Columns = []*model.Column{
		{Name: "flag", DataType: "tinyint", Length: intPtr(1)},
		{Name: "bitflag", DataType: "bit", Precision: intPtr(1)},
	}
	schema.Tables["t"] = table

	out := Schema(schema, Options{})
	for _, name := range []string{"flag", "bitflag"} {
		column := out.Tables["t"].Column(name)
		if column.DataType != "boolean" {
			t.Errorf("%s DataType = %q; want boolean", name, column.DataType)
		}
		if column.Length != nil || column.Precision != nil {
			t.Errorf("%s kept size attributes after synonym collapse", name)
		}
	}
}

func TestSchema_UserTypeMapAugmentsBuiltins(t *testing.T) {
	schema := model.NewSchema("app")
	table := model.NewTable("t")
	table.Columns = []*model.Column{
		{Name: "a", DataType: "CITEXT"},
		{Name: "b", DataType: "integer"},
	}
	schema.Tables["t"] = table

	out := Schema(schema, Options{TypeMap: map[string]string{"citext": "VARCHAR"}})
	if got := out.Tables["t"].Column("a").DataType; got != "varchar" {
		t.Errorf("user-mapped type = %q; want varchar", got)
	}
	if got := out.Tables["t"].Column("b").DataType; got != "int" {
		t.Errorf("builtin mapping lost with user map present; got %q", got)
	}
}

func TestCanonicalDefault(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  'pending'  ", "'pending'"},
		{"('pending')", "'pending'"},
		{"((('pending')))", "'pending'"},
		{"now()", "CURRENT_TIMESTAMP"},
		{"NOW()", "CURRENT_TIMESTAMP"},
		{"(now())", "CURRENT_TIMESTAMP"},
		{"CURRENT_TIMESTAMP", "CURRENT_TIMESTAMP"},
		// Not fully wrapping; both pairs stay.
		{"(1)+(2)", "(1)+(2)"},
		{"()", "()"},
	}
	for _, tt := range tests {
		if got := CanonicalDefault(tt.in); got != tt.want {
			t.Errorf("CanonicalDefault(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchema_DefaultsOptIn(t *testing.T) {
	build := func() *model.Schema {
		schema := model.NewSchema("app")
		table := model.NewTable("t")
		table.Columns = []*model.Column{
			{Name: "created", DataType: "timestamp", Default: strPtr("(now())")},
		}
		schema.Tables["t"] = table
		return schema
	}

	kept := Schema(build(), Options{})
	if got := *kept.Tables["t"].Column("created").Default; got != "(now())" {
		t.Errorf("default rewritten without opt-in: %q", got)
	}

	canonical := Schema(build(), Options{NormalizeDefaults: true})
	if got := *canonical.Tables["t"].Column("created").Default; got != "CURRENT_TIMESTAMP" {
		t.Errorf("default = %q; want CURRENT_TIMESTAMP", got)
	}
}

func TestSchema_CheckExpressionWhitespace(t *testing.T) {
	out := Schema(sampleSchema(), Options{})
	check := out.Tables["Users"].Checks["Users_email_check"]
	if check.Expression != "email <> ''" {
		t.Errorf("check expression = %q; want single-spaced", check.Expression)
	}
}
