package diff

import (
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

// TableChange decomposes a changed table into per-object buckets. An empty
// bucket means that object class is untouched.
type TableChange struct {
	Name string `json:"name"`

	AddedColumns   []*model.Column `json:"added_columns,omitempty"`
	RemovedColumns []*model.Column `json:"removed_columns,omitempty"`
	ColumnChanges  []*ColumnChange `json:"column_changes,omitempty"`

	AddedIndexes   []*model.Index `json:"added_indexes,omitempty"`
	RemovedIndexes []*model.Index `json:"removed_indexes,omitempty"`
	IndexChanges   []*IndexChange `json:"index_changes,omitempty"`

	AddedChecks   []*model.Check `json:"added_checks,omitempty"`
	RemovedChecks []*model.Check `json:"removed_checks,omitempty"`
	CheckChanges  []*CheckChange `json:"check_changes,omitempty"`

	AddedForeignKeys   []*model.ForeignKey `json:"added_foreign_keys,omitempty"`
	RemovedForeignKeys []*model.ForeignKey `json:"removed_foreign_keys,omitempty"`
	ForeignKeyChanges  []*ForeignKeyChange `json:"foreign_key_changes,omitempty"`

	PrimaryKeyChange *PrimaryKeyChange `json:"primary_key_change,omitempty"`
}

// ColumnChange reports each differing column attribute individually so the
// generators can emit one ALTER clause per attribute.
type ColumnChange struct {
	Name string        `json:"name"`
	From *model.Column `json:"from"`
	To   *model.Column `json:"to"`

	TypeChanged      *StringChange   `json:"type_changed,omitempty"`
	NullableChanged  *BoolChange     `json:"nullable_changed,omitempty"`
	DefaultChanged   *OptionalChange `json:"default_changed,omitempty"`
	GeneratedChanged *StringChange   `json:"generated_changed,omitempty"`
	CollationChanged *StringChange   `json:"collation_changed,omitempty"`
}

// StringChange records a from/to pair of string attributes.
type StringChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// BoolChange records a from/to pair of boolean attributes.
type BoolChange struct {
	From bool `json:"from"`
	To   bool `json:"to"`
}

// OptionalChange records a from/to pair where either side may be absent.
type OptionalChange struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// IndexChange records an index present in both models with differing shape.
type IndexChange struct {
	Name string       `json:"name"`
	From *model.Index `json:"from"`
	To   *model.Index `json:"to"`
}

// CheckChange records a check present in both models with differing clauses.
type CheckChange struct {
	Name string       `json:"name"`
	From *model.Check `json:"from"`
	To   *model.Check `json:"to"`
}

// ForeignKeyChange records a foreign key present in both models with a
// differing shape.
type ForeignKeyChange struct {
	Name string            `json:"name"`
	From *model.ForeignKey `json:"from"`
	To   *model.ForeignKey `json:"to"`
}

// PrimaryKeyChange records a primary key differing between the two sides;
// either side may be absent.
type PrimaryKeyChange struct {
	From *model.PrimaryKey `json:"from"`
	To   *model.PrimaryKey `json:"to"`
}

// Empty reports whether the change carries no observable delta.
func (tc *TableChange) Empty() bool {
	return len(tc.AddedColumns) == 0 && len(tc.RemovedColumns) == 0 && len(tc.ColumnChanges) == 0 &&
		len(tc.AddedIndexes) == 0 && len(tc.RemovedIndexes) == 0 && len(tc.IndexChanges) == 0 &&
		len(tc.AddedChecks) == 0 && len(tc.RemovedChecks) == 0 && len(tc.CheckChanges) == 0 &&
		len(tc.AddedForeignKeys) == 0 && len(tc.RemovedForeignKeys) == 0 && len(tc.ForeignKeyChanges) == 0 &&
		tc.PrimaryKeyChange == nil
}

func diffTables(a, b *model.Schema) TablesDiff {
	var out TablesDiff
	for _, name := range b.TableNames() {
		if _, ok := a.Tables[name]; !ok {
			out.Added = append(out.Added, b.Tables[name].Clone())
		}
	}
	for _, name := range a.TableNames() {
		tableA := a.Tables[name]
		tableB, ok := b.Tables[name]
		if !ok {
			out.Removed = append(out.Removed, tableA.Clone())
			continue
		}
		if change := diffTable(tableA, tableB); !change.Empty() {
			out.Changed = append(out.Changed, change)
		}
	}
	return out
}

func diffTable(a, b *model.Table) *TableChange {
	change := &TableChange{Name: a.Name}
	diffColumns(change, a, b)
	diffIndexes(change, a, b)
	diffChecks(change, a, b)
	diffForeignKeys(change, a, b)
	diffPrimaryKey(change, a, b)
	return change
}

func diffColumns(change *TableChange, a, b *model.Table) {
	for _, columnB := range b.Columns {
		if a.Column(columnB.Name) == nil {
			change.AddedColumns = append(change.AddedColumns, columnB.Clone())
		}
	}
	for _, columnA := range a.Columns {
		columnB := b.Column(columnA.Name)
		if columnB == nil {
			change.RemovedColumns = append(change.RemovedColumns, columnA.Clone())
			continue
		}
		if cc := compareColumns(columnA, columnB); cc != nil {
			change.ColumnChanges = append(change.ColumnChanges, cc)
		}
	}
}

// compareColumns returns nil when the columns are equal. Length, precision
// and scale fold into the type token, so a length-only difference surfaces as
// a type change.
func compareColumns(a, b *model.Column) *ColumnChange {
	cc := &ColumnChange{Name: a.Name, From: a.Clone(), To: b.Clone()}
	changed := false

	if tokenA, tokenB := a.TypeToken(), b.TypeToken(); !strings.EqualFold(tokenA, tokenB) {
		cc.TypeChanged = &StringChange{From: tokenA, To: tokenB}
		changed = true
	}
	if a.Nullable != b.Nullable {
		cc.NullableChanged = &BoolChange{From: a.Nullable, To: b.Nullable}
		changed = true
	}
	if !defaultsEqual(a.Default, b.Default) {
		cc.DefaultChanged = &OptionalChange{
			From: cloneOptional(a.Default),
			To:   cloneOptional(b.Default),
		}
		changed = true
	}
	// An unset generation reads as none.
	genA, genB := a.Generated, b.Generated
	if genA == "" {
		genA = model.GenerationNone
	}
	if genB == "" {
		genB = model.GenerationNone
	}
	if genA != genB {
		cc.GeneratedChanged = &StringChange{From: string(genA), To: string(genB)}
		changed = true
	}
	if !strings.EqualFold(a.Collation, b.Collation) {
		cc.CollationChanged = &StringChange{From: a.Collation, To: b.Collation}
		changed = true
	}

	if !changed {
		return nil
	}
	return cc
}

// defaultsEqual treats a missing default and an explicit SQL NULL default as
// the same thing.
func defaultsEqual(a, b *string) bool {
	isNull := func(v *string) bool {
		return v == nil || strings.EqualFold(strings.TrimSpace(*v), "NULL")
	}
	if isNull(a) || isNull(b) {
		return isNull(a) == isNull(b)
	}
	return *a == *b
}

func cloneOptional(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func diffIndexes(change *TableChange, a, b *model.Table) {
	for _, name := range b.IndexNames() {
		if _, ok := a.Indexes[name]; !ok {
			change.AddedIndexes = append(change.AddedIndexes, b.Indexes[name].Clone())
		}
	}
	for _, name := range a.IndexNames() {
		indexA := a.Indexes[name]
		indexB, ok := b.Indexes[name]
		if !ok {
			change.RemovedIndexes = append(change.RemovedIndexes, indexA.Clone())
			continue
		}
		if !indexesEqual(indexA, indexB) {
			change.IndexChanges = append(change.IndexChanges, &IndexChange{
				Name: name,
				From: indexA.Clone(),
				To:   indexB.Clone(),
			})
		}
	}
}

// indexesEqual compares the unique flag, the access method case-insensitively
// (absent equals absent) and the column lists as sorted sets.
func indexesEqual(a, b *model.Index) bool {
	if a.Unique != b.Unique {
		return false
	}
	if !strings.EqualFold(a.Using, b.Using) {
		return false
	}
	return stringSetsEqual(a.Columns, b.Columns)
}

func diffChecks(change *TableChange, a, b *model.Table) {
	for _, name := range b.CheckNames() {
		if _, ok := a.Checks[name]; !ok {
			change.AddedChecks = append(change.AddedChecks, b.Checks[name].Clone())
		}
	}
	for _, name := range a.CheckNames() {
		checkA := a.Checks[name]
		checkB, ok := b.Checks[name]
		if !ok {
			change.RemovedChecks = append(change.RemovedChecks, checkA.Clone())
			continue
		}
		if normalizeExpression(checkA.Expression) != normalizeExpression(checkB.Expression) {
			change.CheckChanges = append(change.CheckChanges, &CheckChange{
				Name: name,
				From: checkA.Clone(),
				To:   checkB.Clone(),
			})
		}
	}
}

func diffForeignKeys(change *TableChange, a, b *model.Table) {
	for _, name := range b.ForeignKeyNames() {
		if _, ok := a.ForeignKeys[name]; !ok {
			change.AddedForeignKeys = append(change.AddedForeignKeys, b.ForeignKeys[name].Clone())
		}
	}
	for _, name := range a.ForeignKeyNames() {
		fkA := a.ForeignKeys[name]
		fkB, ok := b.ForeignKeys[name]
		if !ok {
			change.RemovedForeignKeys = append(change.RemovedForeignKeys, fkA.Clone())
			continue
		}
		if !foreignKeysEqual(fkA, fkB) {
			change.ForeignKeyChanges = append(change.ForeignKeyChanges, &ForeignKeyChange{
				Name: name,
				From: fkA.Clone(),
				To:   fkB.Clone(),
			})
		}
	}
}

// foreignKeysEqual compares local and referenced columns as sorted sets, the
// referenced table and the referential actions case-insensitively; an absent
// action equals an absent action.
func foreignKeysEqual(a, b *model.ForeignKey) bool {
	if !strings.EqualFold(a.ReferencedTable, b.ReferencedTable) {
		return false
	}
	if !stringSetsEqual(a.Columns, b.Columns) {
		return false
	}
	if !stringSetsEqual(a.ReferencedColumns, b.ReferencedColumns) {
		return false
	}
	return strings.EqualFold(a.OnUpdate, b.OnUpdate) && strings.EqualFold(a.OnDelete, b.OnDelete)
}

func diffPrimaryKey(change *TableChange, a, b *model.Table) {
	pkA, pkB := a.PrimaryKey, b.PrimaryKey
	switch {
	case pkA == nil && pkB == nil:
		return
	case pkA == nil || pkB == nil:
		change.PrimaryKeyChange = &PrimaryKeyChange{From: pkA.Clone(), To: pkB.Clone()}
	case !stringSetsEqual(pkA.Columns, pkB.Columns):
		change.PrimaryKeyChange = &PrimaryKeyChange{From: pkA.Clone(), To: pkB.Clone()}
	}
}
