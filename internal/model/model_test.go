package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestColumnTypeToken(t *testing.T) {
	tests := []struct {
		name   string
		column Column
		want   string
	}{
		{"bare type", Column{DataType: "text"}, "text"},
		{"length", Column{DataType: "varchar", Length: intPtr(255)}, "varchar(255)"},
		{"precision and scale", Column{DataType: "numeric", Precision: intPtr(10), Scale: intPtr(2)}, "numeric(10,2)"},
		{"precision only on numeric", Column{DataType: "numeric", Precision: intPtr(10), Scale: intPtr(0)}, "numeric(10)"},
		{"integer precision not rendered", Column{DataType: "bigint", Precision: intPtr(64), Scale: intPtr(0)}, "bigint"},
		{"bit carries precision", Column{DataType: "bit", Precision: intPtr(1)}, "bit(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.column.TypeToken(); got != tt.want {
				t.Errorf("TypeToken() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestSchemaClone_Independent(t *testing.T) {
	schema := NewSchema("app")
	table := NewTable("users")
	table.Columns = []*Column{
		{Name: "id", DataType: "bigint", Default: strPtr("0")},
	}
	table.PrimaryKey = &PrimaryKey{Name: "users_pkey", Columns: []string{"id"}}
	table.Indexes["idx"] = &Index{Name: "idx", Columns: []string{"id"}}
	table.Checks["chk"] = &Check{Name: "chk", Expression: "id > 0"}
	table.ForeignKeys["fk"] = &ForeignKey{
		Name: "fk", Columns: []string{"org_id"},
		ReferencedTable: "orgs", ReferencedColumns: []string{"id"},
	}
	schema.Tables["users"] = table
	schema.Views["v"] = &View{Name: "v", Definition: "SELECT 1"}
	routine := &Routine{Kind: RoutineKindFunction, Name: "f", Body: "BODY"}
	schema.Routines[routine.Key()] = routine
	trigger := &Trigger{Table: "users", Name: "tr", Timing: TriggerTimingBefore,
		Events: []TriggerEvent{TriggerEventInsert}}
	schema.Triggers[trigger.Key()] = trigger

	clone := schema.Clone()
	if diff := cmp.Diff(schema, clone); diff != "" {
		t.Fatalf("clone differs from original (-orig +clone):\n%s", diff)
	}

	// Mutating the clone must not leak into the original.
	clone.Tables["users"].Columns[0].Name = "mutated"
	*clone.Tables["users"].Columns[0].Default = "1"
	clone.Tables["users"].PrimaryKey.Columns[0] = "mutated"
	clone.Tables["users"].Indexes["idx"].Columns[0] = "mutated"
	clone.Tables["users"].ForeignKeys["fk"].Columns[0] = "mutated"
	clone.Triggers[trigger.Key()].Events[0] = TriggerEventDelete

	if schema.Tables["users"].Columns[0].Name != "id" {
		t.Errorf("column name aliased between clone and original")
	}
	if *schema.Tables["users"].Columns[0].Default != "0" {
		t.Errorf("default pointer aliased between clone and original")
	}
	if schema.Tables["users"].PrimaryKey.Columns[0] != "id" {
		t.Errorf("primary key columns aliased")
	}
	if schema.Tables["users"].Indexes["idx"].Columns[0] != "id" {
		t.Errorf("index columns aliased")
	}
	if schema.Tables["users"].ForeignKeys["fk"].Columns[0] != "org_id" {
		t.Errorf("foreign key columns aliased")
	}
	if schema.Triggers[trigger.Key()].Events[0] != TriggerEventInsert {
		t.Errorf("trigger events aliased")
	}
}

func TestSortedAccessors(t *testing.T) {
	schema := NewSchema("app")
	for _, name := range []string{"zeta", "alpha", "Mid"} {
		schema.Views[name] = &View{Name: name}
	}
	views := schema.ViewNames()
	if views[0] != "alpha" || views[1] != "Mid" || views[2] != "zeta" {
		t.Errorf("ViewNames() = %v; want case-insensitive order", views)
	}

	fn := &Routine{Kind: RoutineKindFunction, Name: "b"}
	proc := &Routine{Kind: RoutineKindProcedure, Name: "a"}
	schema.Routines[fn.Key()] = fn
	schema.Routines[proc.Key()] = proc
	keys := schema.RoutineKeys()
	if keys[0].Kind != RoutineKindFunction || keys[1].Kind != RoutineKindProcedure {
		t.Errorf("RoutineKeys() = %v; want functions before procedures", keys)
	}
}
