// Package dbmerge is the stable programmatic surface of dbm-merge: load one
// schema per side, normalize, diff, then render dialect-specific DDL. The CLI
// and any embedding application consume the pipeline through this package
// only.
package dbmerge

import (
	"context"

	"github.com/uvilor/dbm-merge/internal/diff"
	"github.com/uvilor/dbm-merge/internal/generate"
	"github.com/uvilor/dbm-merge/internal/load"
	"github.com/uvilor/dbm-merge/internal/model"
	"github.com/uvilor/dbm-merge/internal/normalize"
	"github.com/uvilor/dbm-merge/internal/prompt"
)

// Re-exported model types.
type (
	ConnRef    = model.ConnRef
	Kind       = model.Kind
	Schema     = model.Schema
	Table      = model.Table
	Column     = model.Column
	PrimaryKey = model.PrimaryKey
	Index      = model.Index
	Check      = model.Check
	ForeignKey = model.ForeignKey
	View       = model.View
	Routine    = model.Routine
	Trigger    = model.Trigger
)

// Re-exported pipeline types.
type (
	NormalizeOptions = normalize.Options
	NameCase         = normalize.NameCase
	CaseStrategy     = normalize.CaseStrategy
	DiffResult       = diff.Result
	DiffSummary      = diff.Summary
	GenerateOptions  = generate.Options
	Direction        = generate.Direction
)

const (
	KindPostgres = model.KindPostgres
	KindMariaDB  = model.KindMariaDB

	CasePreserve = normalize.CasePreserve
	CaseLower    = normalize.CaseLower
	CaseUpper    = normalize.CaseUpper

	DirectionAtoB = generate.DirectionAtoB
	DirectionBtoA = generate.DirectionBtoA
)

// Error types surfaced by the pipeline; match with errors.As.
type (
	ConfigError     = model.ConfigError
	ConnectError    = model.ConnectError
	CatalogError    = model.CatalogError
	GenerationError = model.GenerationError
)

// LoadPostgres introspects a PostgreSQL schema.
func LoadPostgres(ctx context.Context, ref ConnRef) (*Schema, error) {
	ref.Kind = model.KindPostgres
	return load.Schema(ctx, ref)
}

// LoadMariaDB introspects a MariaDB schema.
func LoadMariaDB(ctx context.Context, ref ConnRef) (*Schema, error) {
	ref.Kind = model.KindMariaDB
	return load.Schema(ctx, ref)
}

// LoadSchema introspects whatever engine the ref's kind names.
func LoadSchema(ctx context.Context, ref ConnRef) (*Schema, error) {
	return load.Schema(ctx, ref)
}

// LoadPair introspects two schemas concurrently.
func LoadPair(ctx context.Context, a, b ConnRef) (*Schema, *Schema, error) {
	return load.Pair(ctx, a, b)
}

// NormalizeSchema returns a normalized deep copy of the model.
func NormalizeSchema(m *Schema, opts NormalizeOptions) *Schema {
	return normalize.Schema(m, opts)
}

// ComputeDiff diffs two normalized schema models.
func ComputeDiff(a, b *Schema) *DiffResult {
	return diff.Compute(a, b)
}

// ToPostgres renders the migration script for a PostgreSQL target.
func ToPostgres(d *DiffResult, opts GenerateOptions) (string, error) {
	return generate.Postgres(d, opts)
}

// ToMariaDB renders the migration script for a MariaDB target.
func ToMariaDB(d *DiffResult, opts GenerateOptions) (string, error) {
	return generate.MariaDB(d, opts)
}

// ReviewPrompt renders the bounded Markdown review prompt for a diff and its
// generated DDL.
func ReviewPrompt(d *DiffResult, ddl string) (string, error) {
	return prompt.Build(d, ddl)
}
