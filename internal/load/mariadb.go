package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/uvilor/dbm-merge/internal/logger"
	"github.com/uvilor/dbm-merge/internal/model"
)

// MariaDB introspects a MariaDB schema into a schema model.
func MariaDB(ctx context.Context, ref model.ConnRef) (*model.Schema, error) {
	db, err := openMariaDB(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	loader := &mariadbLoader{db: db, schema: ref.Schema}
	return loader.load(ctx)
}

func openMariaDB(ctx context.Context, ref model.ConnRef) (*sql.DB, error) {
	log := logger.Get()
	log.Debug("connecting to mariadb",
		"host", ref.Host,
		"port", ref.Port,
		"database", ref.Database,
		"user", ref.User,
	)

	cfg := mysql.NewConfig()
	cfg.User = ref.User
	cfg.Passwd = ref.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", ref.Host, ref.Port)
	cfg.DBName = ref.Database
	if ref.SSL {
		cfg.TLSConfig = "true"
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, &model.ConnectError{Host: ref.Host, Port: ref.Port, Err: err}
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &model.ConnectError{Host: ref.Host, Port: ref.Port, Err: err}
	}
	return db, nil
}

type mariadbLoader struct {
	db     *sql.DB
	schema string
}

func (l *mariadbLoader) load(ctx context.Context) (*model.Schema, error) {
	out := model.NewSchema(l.schema)

	steps := []struct {
		name string
		fn   func(context.Context, *model.Schema) error
	}{
		{"tables", l.loadTables},
		{"columns", l.loadColumns},
		{"primary keys", l.loadPrimaryKeys},
		{"indexes", l.loadIndexes},
		{"foreign keys", l.loadForeignKeys},
		{"checks", l.loadChecks},
		{"views", l.loadViews},
		{"routines", l.loadRoutines},
		{"triggers", l.loadTriggers},
	}
	for _, step := range steps {
		if err := step.fn(ctx, out); err != nil {
			return nil, fmt.Errorf("load %s for schema %q: %w", step.name, l.schema, err)
		}
		logger.Get().Debug("catalog step complete", "engine", "mariadb", "step", step.name)
	}
	return out, nil
}

func (l *mariadbLoader) loadTables(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type IN ('BASE TABLE', 'SYSTEM VERSIONED')
		ORDER BY table_name`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return &model.CatalogError{Entity: "table list", Err: err}
		}
		out.Tables[name] = model.NewTable(name)
	}
	return rows.Err()
}

func (l *mariadbLoader) loadColumns(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, column_type,
		       character_maximum_length, numeric_precision, numeric_scale,
		       is_nullable, column_default, extra, collation_name
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, dataType, columnType string
			length, precision, scale                    sql.NullInt64
			nullable, extra                             string
			defaultExpr, collation                      sql.NullString
		)
		if err := rows.Scan(&tableName, &columnName, &dataType, &columnType,
			&length, &precision, &scale, &nullable, &defaultExpr, &extra, &collation); err != nil {
			return &model.CatalogError{Entity: "column list", Err: err}
		}

		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}

		column := &model.Column{
			Name:      columnName,
			DataType:  dataType,
			Length:    nullIntPtr(length),
			Precision: nullIntPtr(precision),
			Scale:     nullIntPtr(scale),
			Nullable:  nullable == "YES",
			Generated: model.GenerationNone,
			Collation: collation.String,
		}
		// The tinyint(1) display width only survives in column_type; carry it
		// as the length so the boolean synonym can see it.
		if strings.EqualFold(columnType, "tinyint(1)") {
			one := 1
			column.Length = &one
			column.Precision = nil
			column.Scale = nil
		}
		if strings.Contains(strings.ToLower(extra), "auto_increment") {
			column.Generated = model.GenerationAutoIncrement
		} else if defaultExpr.Valid {
			column.Default = &defaultExpr.String
		}

		table.Columns = append(table.Columns, column)
	}
	return rows.Err()
}

func (l *mariadbLoader) loadPrimaryKeys(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT tc.table_name, tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		 AND kcu.table_name = tc.table_name
		WHERE tc.table_schema = ? AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY tc.table_name, kcu.ordinal_position`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, columnName string
		if err := rows.Scan(&tableName, &constraintName, &columnName); err != nil {
			return &model.CatalogError{Entity: "primary key list", Err: err}
		}
		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}
		if table.PrimaryKey == nil {
			table.PrimaryKey = &model.PrimaryKey{Name: constraintName}
		}
		table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, columnName)
	}
	return rows.Err()
}

func (l *mariadbLoader) loadIndexes(ctx context.Context, out *model.Schema) error {
	// statistics has one row per index column; rows sharing (table, index)
	// aggregate into one index. The PRIMARY index is modeled as the primary
	// key, not as an index.
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, index_name, non_unique, column_name, index_type
		FROM information_schema.statistics
		WHERE table_schema = ? AND index_name <> 'PRIMARY'
		ORDER BY table_name, index_name, seq_in_index`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, indexName, columnName, indexType string
		var nonUnique int
		if err := rows.Scan(&tableName, &indexName, &nonUnique, &columnName, &indexType); err != nil {
			return &model.CatalogError{Entity: "index list", Err: err}
		}
		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}
		index, ok := table.Indexes[indexName]
		if !ok {
			index = &model.Index{
				Name:   indexName,
				Unique: nonUnique == 0,
				Using:  strings.ToLower(indexType),
			}
			table.Indexes[indexName] = index
		}
		index.Columns = append(index.Columns, columnName)
	}
	return rows.Err()
}

func (l *mariadbLoader) loadForeignKeys(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT kcu.table_name, kcu.constraint_name, kcu.column_name,
		       kcu.referenced_table_name, kcu.referenced_column_name,
		       rc.update_rule, rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_schema = kcu.constraint_schema
		 AND rc.constraint_name = kcu.constraint_name
		 AND rc.table_name = kcu.table_name
		WHERE kcu.table_schema = ? AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, columnName string
		var refTable, refColumn, updateRule, deleteRule string
		if err := rows.Scan(&tableName, &constraintName, &columnName,
			&refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return &model.CatalogError{Entity: "foreign key list", Err: err}
		}
		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}
		fk, ok := table.ForeignKeys[constraintName]
		if !ok {
			fk = &model.ForeignKey{
				Name:            constraintName,
				ReferencedTable: refTable,
				OnUpdate:        updateRule,
				OnDelete:        deleteRule,
			}
			table.ForeignKeys[constraintName] = fk
		}
		fk.Columns = append(fk.Columns, columnName)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	return rows.Err()
}

func (l *mariadbLoader) loadChecks(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, constraint_name, check_clause
		FROM information_schema.check_constraints
		WHERE constraint_schema = ?
		ORDER BY table_name, constraint_name`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, clause string
		if err := rows.Scan(&tableName, &constraintName, &clause); err != nil {
			return &model.CatalogError{Entity: "check list", Err: err}
		}
		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}
		table.Checks[constraintName] = &model.Check{Name: constraintName, Expression: clause}
	}
	return rows.Err()
}

func (l *mariadbLoader) loadViews(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = ?
		ORDER BY table_name`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var definition sql.NullString
		if err := rows.Scan(&name, &definition); err != nil {
			return &model.CatalogError{Entity: "view list", Err: err}
		}
		out.Views[name] = &model.View{Name: name, Definition: definition.String}
	}
	return rows.Err()
}

func (l *mariadbLoader) loadRoutines(ctx context.Context, out *model.Schema) error {
	// routine_body is the language tag in MariaDB ("SQL").
	rows, err := l.db.QueryContext(ctx, `
		SELECT routine_name, routine_type, routine_body, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = ? AND routine_type IN ('FUNCTION', 'PROCEDURE')
		ORDER BY routine_type, routine_name`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, routineType string
		var language, definition sql.NullString
		if err := rows.Scan(&name, &routineType, &language, &definition); err != nil {
			return &model.CatalogError{Entity: "routine list", Err: err}
		}
		kind := model.RoutineKindFunction
		if routineType == "PROCEDURE" {
			kind = model.RoutineKindProcedure
		}
		routine := &model.Routine{
			Kind:     kind,
			Name:     name,
			Language: strings.ToLower(language.String),
			Body:     definition.String,
		}
		out.Routines[routine.Key()] = routine
	}
	return rows.Err()
}

func (l *mariadbLoader) loadTriggers(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_object_table, trigger_name, action_timing,
		       event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = ?
		ORDER BY event_object_table, trigger_name, event_manipulation`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, triggerName, timing, event, statement string
		if err := rows.Scan(&tableName, &triggerName, &timing, &event, &statement); err != nil {
			return &model.CatalogError{Entity: "trigger list", Err: err}
		}
		addTriggerEvent(out, tableName, triggerName, timing, event, statement)
	}
	return rows.Err()
}
