package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/uvilor/dbm-merge/internal/logger"
	"github.com/uvilor/dbm-merge/internal/model"
)

// Postgres introspects a PostgreSQL schema into a schema model.
func Postgres(ctx context.Context, ref model.ConnRef) (*model.Schema, error) {
	db, err := openPostgres(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	loader := &postgresLoader{db: db, schema: ref.Schema}
	return loader.load(ctx)
}

func openPostgres(ctx context.Context, ref model.ConnRef) (*sql.DB, error) {
	log := logger.Get()
	log.Debug("connecting to postgres",
		"host", ref.Host,
		"port", ref.Port,
		"database", ref.Database,
		"user", ref.User,
	)

	db, err := sql.Open("pgx", postgresDSN(ref))
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

func postgresDSN(ref model.ConnRef) string {
	sslMode := "disable"
	if ref.SSL {
		sslMode = "require"
	}
	parts := []string{
		fmt.Sprintf("host=%s", ref.Host),
		fmt.Sprintf("port=%d", ref.Port),
		fmt.Sprintf("dbname=%s", ref.Database),
		fmt.Sprintf("user=%s", ref.User),
		fmt.Sprintf("sslmode=%s", sslMode),
		"application_name=dbm-merge",
	}
	if ref.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", ref.Password))
	}
	return strings.Join(parts, " ")
}

type postgresLoader struct {
	db     *sql.DB
	schema string
}

func (l *postgresLoader) load(ctx context.Context) (*model.Schema, error) {
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
		logger.Get().Debug("catalog step complete", "engine", "postgres", "step", step.name)
	}
	return out, nil
}

func (l *postgresLoader) loadTables(ctx context.Context, out *model.Schema) error {
	// relkind r = ordinary table, p = partitioned table.
	rows, err := l.db.QueryContext(ctx, `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p')
		ORDER BY c.relname`, l.schema)
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

func (l *postgresLoader) loadColumns(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type, character_maximum_length,
		       numeric_precision, numeric_scale, is_nullable, column_default,
		       is_identity, collation_name
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, columnName, dataType string
			length, precision, scale        sql.NullInt64
			nullable, isIdentity            string
			defaultExpr, collation          sql.NullString
		)
		if err := rows.Scan(&tableName, &columnName, &dataType, &length,
			&precision, &scale, &nullable, &defaultExpr, &isIdentity, &collation); err != nil {
			return &model.CatalogError{Entity: "column list", Err: err}
		}

		table, ok := out.Tables[tableName]
		if !ok {
			// information_schema.columns also reports view columns.
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

		switch {
		case isIdentity == "YES":
			column.Generated = model.GenerationIdentity
		case defaultExpr.Valid && strings.HasPrefix(defaultExpr.String, "nextval("):
			// An owned sequence feeds this column; the nextval default is the
			// generation mechanism, not a user default.
			column.Generated = model.GenerationSequence
		default:
			if defaultExpr.Valid {
				column.Default = &defaultExpr.String
			}
		}

		table.Columns = append(table.Columns, column)
	}
	return rows.Err()
}

func (l *postgresLoader) loadPrimaryKeys(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT tc.table_name, tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
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

func (l *postgresLoader) loadIndexes(ctx context.Context, out *model.Schema) error {
	// pg_indexes exposes the index as a CREATE INDEX statement; uniqueness,
	// access method and column list are recovered from that text. The join on
	// pg_index drops the primary-key index, which is modeled separately.
	rows, err := l.db.QueryContext(ctx, `
		SELECT i.tablename, i.indexname, i.indexdef
		FROM pg_catalog.pg_indexes i
		JOIN pg_catalog.pg_class ic ON ic.relname = i.indexname
		JOIN pg_catalog.pg_namespace n ON n.oid = ic.relnamespace AND n.nspname = i.schemaname
		JOIN pg_catalog.pg_index x ON x.indexrelid = ic.oid
		WHERE i.schemaname = $1 AND NOT x.indisprimary
		ORDER BY i.tablename, i.indexname`, l.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, indexName, indexDef string
		if err := rows.Scan(&tableName, &indexName, &indexDef); err != nil {
			return &model.CatalogError{Entity: "index list", Err: err}
		}
		table, ok := out.Tables[tableName]
		if !ok {
			continue
		}
		index, err := parseIndexDef(indexName, indexDef)
		if err != nil {
			return &model.CatalogError{
				Entity: fmt.Sprintf("index %s.%s", tableName, indexName),
				Err:    err,
			}
		}
		table.Indexes[indexName] = index
	}
	return rows.Err()
}

func (l *postgresLoader) loadForeignKeys(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT kcu1.table_name, rc.constraint_name, kcu1.column_name,
		       kcu2.table_name, kcu2.column_name,
		       rc.update_rule, rc.delete_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu1
		  ON kcu1.constraint_name = rc.constraint_name
		 AND kcu1.table_schema = rc.constraint_schema
		JOIN information_schema.key_column_usage kcu2
		  ON kcu2.constraint_name = rc.unique_constraint_name
		 AND kcu2.table_schema = rc.unique_constraint_schema
		 AND kcu2.ordinal_position = kcu1.ordinal_position
		WHERE rc.constraint_schema = $1
		ORDER BY kcu1.table_name, rc.constraint_name, kcu1.ordinal_position`, l.schema)
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

func (l *postgresLoader) loadChecks(ctx context.Context, out *model.Schema) error {
	// The *_not_null filter drops the synthetic checks PostgreSQL records for
	// NOT NULL columns; nullability is already on the column.
	rows, err := l.db.QueryContext(ctx, `
		SELECT tc.table_name, tc.constraint_name, cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
		  ON cc.constraint_schema = tc.constraint_schema
		 AND cc.constraint_name = tc.constraint_name
		WHERE tc.table_schema = $1 AND tc.constraint_type = 'CHECK'
		  AND tc.constraint_name NOT LIKE '%_not_null'
		ORDER BY tc.table_name, tc.constraint_name`, l.schema)
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

func (l *postgresLoader) loadViews(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, view_definition
		FROM information_schema.views
		WHERE table_schema = $1
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

func (l *postgresLoader) loadRoutines(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT routine_name, routine_type, external_language, routine_definition
		FROM information_schema.routines
		WHERE routine_schema = $1 AND routine_type IN ('FUNCTION', 'PROCEDURE')
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

func (l *postgresLoader) loadTriggers(ctx context.Context, out *model.Schema) error {
	rows, err := l.db.QueryContext(ctx, `
		SELECT event_object_table, trigger_name, action_timing,
		       event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE trigger_schema = $1
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

// addTriggerEvent folds one catalog row into the trigger set. The catalog
// emits one row per (trigger, event); events are accumulated and deduplicated.
func addTriggerEvent(out *model.Schema, tableName, triggerName, timing, event, body string) {
	var triggerTiming model.TriggerTiming
	switch strings.ToUpper(timing) {
	case "BEFORE":
		triggerTiming = model.TriggerTimingBefore
	case "AFTER":
		triggerTiming = model.TriggerTimingAfter
	default:
		// INSTEAD OF belongs to view triggers, which are out of model.
		logger.Get().Debug("skipping trigger with unsupported timing",
			"trigger", triggerName, "timing", timing)
		return
	}

	var triggerEvent model.TriggerEvent
	switch strings.ToUpper(event) {
	case "INSERT":
		triggerEvent = model.TriggerEventInsert
	case "UPDATE":
		triggerEvent = model.TriggerEventUpdate
	case "DELETE":
		triggerEvent = model.TriggerEventDelete
	default:
		return
	}

	key := model.TriggerKey{Table: tableName, Name: triggerName}
	trigger, ok := out.Triggers[key]
	if !ok {
		trigger = &model.Trigger{
			Table:  tableName,
			Name:   triggerName,
			Timing: triggerTiming,
			Body:   body,
		}
		out.Triggers[key] = trigger
	}
	for _, existing := range trigger.Events {
		if existing == triggerEvent {
			return
		}
	}
	trigger.Events = append(trigger.Events, triggerEvent)
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
