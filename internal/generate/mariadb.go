package generate

import (
	"fmt"
	"strings"

	"github.com/uvilor/dbm-merge/internal/model"
)

// mariadbDialect renders MariaDB statements. Identifiers are backtick-quoted
// with internal backticks doubled.
type mariadbDialect struct{}

func (d *mariadbDialect) begin() string {
	return "START TRANSACTION;"
}

func (d *mariadbDialect) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d *mariadbDialect) columnClause(c *model.Column) string {
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
	if c.Generated == model.GenerationAutoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.Collation != "" {
		b.WriteString(" COLLATE ")
		b.WriteString(c.Collation)
	}
	return b.String()
}

func (d *mariadbDialect) columnMarkers(table string, c *model.Column) []string {
	// Identity and sequence generation are PostgreSQL concepts; flag them so a
	// reviewer picks an AUTO_INCREMENT or sequence replacement deliberately.
	switch c.Generated {
	case model.GenerationIdentity, model.GenerationSequence:
		return []string{fmt.Sprintf(
			"-- TODO: ensure generation strategy is preserved for %s.%s", table, c.Name)}
	}
	return nil
}

func (d *mariadbDialect) tableSuffix() string {
	return " ENGINE=InnoDB"
}

func (d *mariadbDialect) dropIndex(table, index string, opts Options) string {
	ifExists := ""
	if opts.IfExists {
		ifExists = "IF EXISTS "
	}
	return fmt.Sprintf("DROP INDEX %s%s ON %s;", ifExists, d.quote(index), d.quote(table))
}

func (d *mariadbDialect) dropTrigger(t *model.Trigger, opts Options) string {
	ifExists := ""
	if opts.IfExists {
		ifExists = "IF EXISTS "
	}
	return fmt.Sprintf("DROP TRIGGER %s%s;", ifExists, d.quote(t.Name))
}

func (d *mariadbDialect) alterColumnType(table string, c *model.Column) string {
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s;", d.quote(table), d.columnClause(c))
}

func (d *mariadbDialect) alterColumnNullable(table string, c *model.Column) string {
	// MariaDB has no SET/DROP NOT NULL; nullability changes ride on MODIFY
	// with the full desired definition.
	return fmt.Sprintf("ALTER TABLE %s MODIFY %s;", d.quote(table), d.columnClause(c))
}

func (d *mariadbDialect) alterColumnDefault(table, column string, def *string) string {
	if def == nil {
		return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", d.quote(table), d.quote(column))
	}
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", d.quote(table), d.quote(column), *def)
}

func (d *mariadbDialect) dropPrimaryKey(table string, pk *model.PrimaryKey) string {
	return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", d.quote(table))
}

func (d *mariadbDialect) addPrimaryKey(table string, pk *model.PrimaryKey) string {
	quoted := make([]string, len(pk.Columns))
	for i, column := range pk.Columns {
		quoted[i] = d.quote(column)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s);", d.quote(table), strings.Join(quoted, ", "))
}
