// Package load introspects live database catalogs into schema models. One
// loader per supported engine; dispatch is by the kind tag on the connection
// ref.
package load

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/uvilor/dbm-merge/internal/model"
)

// Introspection never needs more than two catalog queries in flight; small
// databases should not see a connection spike during a load.
const maxOpenConns = 2

var systemSchemas = map[model.Kind][]string{
	model.KindPostgres: {"pg_catalog", "information_schema", "pg_toast", "pg_internal"},
	model.KindMariaDB:  {"mysql", "performance_schema", "information_schema", "sys"},
}

// Schema introspects the schema named by ref and returns a complete model.
// Partial models are never returned: any failure aborts the load.
func Schema(ctx context.Context, ref model.ConnRef) (*model.Schema, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	switch ref.Kind {
	case model.KindPostgres:
		return Postgres(ctx, ref)
	case model.KindMariaDB:
		return MariaDB(ctx, ref)
	default:
		return nil, model.NewConfigError("unsupported engine %q", ref.Kind)
	}
}

// Pair loads two schemas concurrently. Each loader owns a private connection
// released before it returns, so the loads share nothing.
func Pair(ctx context.Context, a, b model.ConnRef) (*model.Schema, *model.Schema, error) {
	var schemaA, schemaB *model.Schema
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schemaA, err = Schema(ctx, a)
		return err
	})
	g.Go(func() error {
		var err error
		schemaB, err = Schema(ctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return schemaA, schemaB, nil
}

func validateRef(ref model.ConnRef) error {
	if ref.Schema == "" {
		return model.NewConfigError("schema name is required")
	}
	for _, name := range systemSchemas[ref.Kind] {
		if strings.EqualFold(ref.Schema, name) {
			return model.NewConfigError("refusing to introspect system schema %q", ref.Schema)
		}
	}
	return nil
}
