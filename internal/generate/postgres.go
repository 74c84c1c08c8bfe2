package generate

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/uvilor/dbm-merge/internal/model"
)

// postgresDialect renders PostgreSQL statements. Identifiers are
// double-quoted with internal quotes doubled.
type postgresDialect struct{}

func (d *postgresDialect) begin() string {
	return "BEGIN;"
}

func (d *postgresDialect) quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

func (d *postgresDialect) columnClause(c *model.Column) string {
	var b strings.Builder
	b.WriteString(d.quote(c.Name))
	b.WriteString(" ")
	b.WriteString(c.TypeToken())
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	if c.Collation != "" {
		b.WriteString(" COLLATE ")
		b.WriteString(d.quote(c.Collation))
	}
	return b.String()
}

func (d *postgresDialect) columnMarkers(table string, c *model.Column) []string {
	switch c.Generated {
	case model.GenerationIdentity, model.GenerationSequence:
		return []string{fmt.Sprintf(
			"-- TODO: ensure generation strategy is preserved for %s.%s", table, c.Name)}
	}
	return nil
}

func (d *postgresDialect) tableSuffix() string {
	return ""
}

func (d *postgresDialect) dropIndex(table, index string, opts Options) string {
	ifExists := ""
	if opts.IfExists {
		ifExists = "IF EXISTS "
	}
	return fmt.Sprintf("DROP INDEX %s%s;", ifExists, d.quote(index))
}

func (d *postgresDialect) dropTrigger(t *model.Trigger, opts Options) string {
	ifExists := ""
	if opts.IfExists {
		ifExists = "IF EXISTS "
	}
	return fmt.Sprintf("DROP TRIGGER %s%s ON %s;", ifExists, d.quote(t.Name), d.quote(t.Table))
}

func (d *postgresDialect) alterColumnType(table string, c *model.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;",
		d.quote(table), d.quote(c.Name), c.TypeToken())
}

func (d *postgresDialect) alterColumnNullable(table string, c *model.Column) string {
	action := "SET NOT NULL"
	if c.Nullable {
		action = "DROP NOT NULL"
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s;", d.quote(table), d.quote(c.Name), action)
}

func (d *postgresDialect) alterColumnDefault(table, column string, def *string) string {
	if def == nil {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", d.quote(table), d.quote(column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", d.quote(table), d.quote(column), *def)
}

func (d *postgresDialect) dropPrimaryKey(table string, pk *model.PrimaryKey) string {
	name := pk.Name
	if name == "" {
		name = table + "_pkey"
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", d.quote(table), d.quote(name))
}

func (d *postgresDialect) addPrimaryKey(table string, pk *model.PrimaryKey) string {
	quoted := make([]string, len(pk.Columns))
	for i, column := range pk.Columns {
		quoted[i] = d.quote(column)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", d.quote(table), strings.Join(quoted, ", "))
}
