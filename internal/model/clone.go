package model

// Clone returns a deep copy of the schema. The normalizer and differ operate
// on copies so loaded models are never mutated in place.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := NewSchema(s.Name)
	for name, table := range s.Tables {
		out.Tables[name] = table.Clone()
	}
	for name, view := range s.Views {
		out.Views[name] = view.Clone()
	}
	for key, routine := range s.Routines {
		out.Routines[key] = routine.Clone()
	}
	for key, trigger := range s.Triggers {
		out.Triggers[key] = trigger.Clone()
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := NewTable(t.Name)
	out.Columns = make([]*Column, len(t.Columns))
	for i, c := range t.Columns {
		out.Columns[i] = c.Clone()
	}
	out.PrimaryKey = t.PrimaryKey.Clone()
	for name, idx := range t.Indexes {
		out.Indexes[name] = idx.Clone()
	}
	for name, check := range t.Checks {
		out.Checks[name] = check.Clone()
	}
	for name, fk := range t.ForeignKeys {
		out.ForeignKeys[name] = fk.Clone()
	}
	return out
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	out := *c
	out.Length = cloneIntPtr(c.Length)
	out.Precision = cloneIntPtr(c.Precision)
	out.Scale = cloneIntPtr(c.Scale)
	out.Default = cloneStringPtr(c.Default)
	return &out
}

// Clone returns a deep copy of the primary key.
func (pk *PrimaryKey) Clone() *PrimaryKey {
	if pk == nil {
		return nil
	}
	return &PrimaryKey{
		Name:    pk.Name,
		Columns: cloneStrings(pk.Columns),
	}
}

// Clone returns a deep copy of the index.
func (i *Index) Clone() *Index {
	if i == nil {
		return nil
	}
	return &Index{
		Name:    i.Name,
		Unique:  i.Unique,
		Columns: cloneStrings(i.Columns),
		Using:   i.Using,
	}
}

// Clone returns a deep copy of the check constraint.
func (c *Check) Clone() *Check {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// Clone returns a deep copy of the foreign key.
func (fk *ForeignKey) Clone() *ForeignKey {
	if fk == nil {
		return nil
	}
	return &ForeignKey{
		Name:              fk.Name,
		Columns:           cloneStrings(fk.Columns),
		ReferencedTable:   fk.ReferencedTable,
		ReferencedColumns: cloneStrings(fk.ReferencedColumns),
		OnUpdate:          fk.OnUpdate,
		OnDelete:          fk.OnDelete,
	}
}

// Clone returns a deep copy of the view.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Clone returns a deep copy of the routine.
func (r *Routine) Clone() *Routine {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

// Clone returns a deep copy of the trigger.
func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}
	return &Trigger{
		Table:  t.Table,
		Name:   t.Name,
		Timing: t.Timing,
		Events: append([]TriggerEvent(nil), t.Events...),
		Body:   t.Body,
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneIntPtr(in *int) *int {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func cloneStringPtr(in *string) *string {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}
