// Package model defines the dialect-neutral schema representation produced by
// the catalog loaders and consumed by the normalizer, differ and generators.
package model

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a supported database engine.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMariaDB  Kind = "mariadb"
)

// ConnRef describes how to reach one schema of one database.
type ConnRef struct {
	Kind     Kind
	Host     string
	Port     int
	Database string
	Schema   string
	User     string
	Password string
	SSL      bool
}

// Generation describes how a column value is produced by the database.
type Generation string

const (
	GenerationNone          Generation = "none"
	GenerationIdentity      Generation = "identity"
	GenerationSequence      Generation = "sequence"
	GenerationAutoIncrement Generation = "auto_increment"
)

// RoutineKind distinguishes functions from procedures. A function and a
// procedure sharing a name are distinct objects.
type RoutineKind string

const (
	RoutineKindFunction  RoutineKind = "function"
	RoutineKindProcedure RoutineKind = "procedure"
)

// TriggerTiming represents when a trigger fires relative to its statement.
type TriggerTiming string

const (
	TriggerTimingBefore TriggerTiming = "before"
	TriggerTimingAfter  TriggerTiming = "after"
)

// TriggerEvent represents the DML event a trigger reacts to.
type TriggerEvent string

const (
	TriggerEventInsert TriggerEvent = "insert"
	TriggerEventUpdate TriggerEvent = "update"
	TriggerEventDelete TriggerEvent = "delete"
)

// RoutineKey identifies a routine within a schema.
type RoutineKey struct {
	Kind RoutineKind `json:"kind"`
	Name string      `json:"name"`
}

// TriggerKey identifies a trigger within a schema.
type TriggerKey struct {
	Table string `json:"table"`
	Name  string `json:"name"`
}

// Schema is the in-memory model of one database schema.
type Schema struct {
	Name     string                  `json:"name"`
	Tables   map[string]*Table       `json:"tables"`
	Views    map[string]*View        `json:"views"`
	Routines map[RoutineKey]*Routine `json:"-"`
	Triggers map[TriggerKey]*Trigger `json:"-"`
}

// NewSchema creates an empty schema model.
func NewSchema(name string) *Schema {
	return &Schema{
		Name:     name,
		Tables:   make(map[string]*Table),
		Views:    make(map[string]*View),
		Routines: make(map[RoutineKey]*Routine),
		Triggers: make(map[TriggerKey]*Trigger),
	}
}

// Table represents one base table.
type Table struct {
	Name        string                 `json:"name"`
	Columns     []*Column              `json:"columns"`
	PrimaryKey  *PrimaryKey            `json:"primary_key,omitempty"`
	Indexes     map[string]*Index      `json:"indexes"`
	Checks      map[string]*Check      `json:"checks"`
	ForeignKeys map[string]*ForeignKey `json:"foreign_keys"`
}

// NewTable creates an empty table with initialized collections.
func NewTable(name string) *Table {
	return &Table{
		Name:        name,
		Indexes:     make(map[string]*Index),
		Checks:      make(map[string]*Check),
		ForeignKeys: make(map[string]*ForeignKey),
	}
}

// Column carries the result of the catalog column query. Length, precision
// and scale are pointers because the catalog reports them as nullable.
type Column struct {
	Name      string     `json:"name"`
	DataType  string     `json:"data_type"`
	Length    *int       `json:"length,omitempty"`
	Precision *int       `json:"precision,omitempty"`
	Scale     *int       `json:"scale,omitempty"`
	Nullable  bool       `json:"nullable"`
	Default   *string    `json:"default,omitempty"`
	Generated Generation `json:"generated"`
	Collation string     `json:"collation,omitempty"`
}

// TypeToken renders the column type with length or precision/scale folded in,
// e.g. "varchar(255)" or "numeric(10,2)". Two columns whose tokens differ are
// considered changed even when the bare data type matches.
func (c *Column) TypeToken() string {
	var b strings.Builder
	b.WriteString(c.DataType)
	switch {
	case c.Length != nil:
		b.WriteString("(")
		b.WriteString(strconv.Itoa(*c.Length))
		b.WriteString(")")
	case c.Precision != nil && c.Scale != nil && *c.Scale != 0:
		b.WriteString("(")
		b.WriteString(strconv.Itoa(*c.Precision))
		b.WriteString(",")
		b.WriteString(strconv.Itoa(*c.Scale))
		b.WriteString(")")
	case c.Precision != nil && typeCarriesPrecision(c.DataType):
		b.WriteString("(")
		b.WriteString(strconv.Itoa(*c.Precision))
		b.WriteString(")")
	}
	return b.String()
}

// typeCarriesPrecision reports whether a bare precision (no scale) is part of
// the type spelling. Integer types report a precision in the catalog that is
// not part of the declared type.
func typeCarriesPrecision(dataType string) bool {
	switch strings.ToLower(dataType) {
	case "numeric", "decimal", "float", "bit":
		return true
	}
	return false
}

// PrimaryKey represents a table's primary key.
type PrimaryKey struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// Index represents a secondary index. The primary-key index is not modeled
// here; it lives on Table.PrimaryKey.
type Index struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique"`
	Columns []string `json:"columns"`
	Using   string   `json:"using,omitempty"`
}

// Check represents a check constraint with its raw clause.
type Check struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// ForeignKey represents a foreign-key constraint. Referenced columns are not
// validated against the referenced table; the database owns that invariant.
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns"`
	ReferencedTable   string   `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
	OnUpdate          string   `json:"on_update,omitempty"`
	OnDelete          string   `json:"on_delete,omitempty"`
}

// View represents a view and its definition text.
type View struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Routine represents a stored function or procedure.
type Routine struct {
	Kind     RoutineKind `json:"kind"`
	Name     string      `json:"name"`
	Language string      `json:"language,omitempty"`
	Body     string      `json:"body"`
}

// Key returns the routine's identity within a schema.
func (r *Routine) Key() RoutineKey {
	return RoutineKey{Kind: r.Kind, Name: r.Name}
}

// Trigger represents a trigger on one table. Events are deduplicated by the
// loaders.
type Trigger struct {
	Table  string         `json:"table"`
	Name   string         `json:"name"`
	Timing TriggerTiming  `json:"timing"`
	Events []TriggerEvent `json:"events"`
	Body   string         `json:"body"`
}

// Key returns the trigger's identity within a schema.
func (t *Trigger) Key() TriggerKey {
	return TriggerKey{Table: t.Table, Name: t.Name}
}

// Column looks up a column by name.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TableNames returns table names sorted for deterministic iteration.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ViewNames returns view names sorted by lowercased name.
func (s *Schema) ViewNames() []string {
	names := make([]string, 0, len(s.Views))
	for name := range s.Views {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// RoutineKeys returns routine keys sorted by lowercased kind then name.
func (s *Schema) RoutineKeys() []RoutineKey {
	keys := make([]RoutineKey, 0, len(s.Routines))
	for key := range s.Routines {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return strings.ToLower(keys[i].Name) < strings.ToLower(keys[j].Name)
	})
	return keys
}

// TriggerKeys returns trigger keys sorted by lowercased table then name.
func (s *Schema) TriggerKeys() []TriggerKey {
	keys := make([]TriggerKey, 0, len(s.Triggers))
	for key := range s.Triggers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := strings.ToLower(keys[i].Table), strings.ToLower(keys[j].Table)
		if ti != tj {
			return ti < tj
		}
		return strings.ToLower(keys[i].Name) < strings.ToLower(keys[j].Name)
	})
	return keys
}

// IndexNames returns index names sorted for deterministic iteration.
func (t *Table) IndexNames() []string {
	names := make([]string, 0, len(t.Indexes))
	for name := range t.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckNames returns check names sorted for deterministic iteration.
func (t *Table) CheckNames() []string {
	names := make([]string, 0, len(t.Checks))
	for name := range t.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForeignKeyNames returns FK names sorted for deterministic iteration.
func (t *Table) ForeignKeyNames() []string {
	names := make([]string, 0, len(t.ForeignKeys))
	for name := range t.ForeignKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
