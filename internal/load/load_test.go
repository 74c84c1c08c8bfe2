package load

import (
	"context"
	"errors"
	"testing"

	"github.com/uvilor/dbm-merge/internal/model"
)

func TestSchema_RejectsSystemSchemas(t *testing.T) {
	tests := []struct {
		kind   model.Kind
		schema string
	}{
		{model.KindPostgres, "pg_catalog"},
		{model.KindPostgres, "information_schema"},
		{model.KindPostgres, "pg_toast"},
		{model.KindPostgres, "pg_internal"},
		{model.KindPostgres, "PG_CATALOG"},
		{model.KindMariaDB, "mysql"},
		{model.KindMariaDB, "performance_schema"},
		{model.KindMariaDB, "information_schema"},
		{model.KindMariaDB, "sys"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.schema, func(t *testing.T) {
			ref := model.ConnRef{Kind: tt.kind, Host: "localhost", Schema: tt.schema}
			_, err := Schema(context.Background(), ref)
			var configErr *model.ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Schema() error = %v; want ConfigError", err)
			}
		})
	}
}

func TestSchema_RejectsEmptySchema(t *testing.T) {
	ref := model.ConnRef{Kind: model.KindPostgres, Host: "localhost"}
	_, err := Schema(context.Background(), ref)
	var configErr *model.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Schema() error = %v; want ConfigError", err)
	}
}

func TestSchema_RejectsUnsupportedKind(t *testing.T) {
	ref := model.ConnRef{Kind: "oracle", Host: "localhost", Schema: "app"}
	_, err := Schema(context.Background(), ref)
	var configErr *model.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Schema() error = %v; want ConfigError", err)
	}
}
