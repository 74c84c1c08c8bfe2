// Package testutil provides the shared PostgreSQL container harness for
// loader integration tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var quietLogger = log.New(io.Discard, "", 0)

// postgresImageVersion returns the PostgreSQL version under test, overridable
// via DBMERGE_POSTGRES_VERSION.
func postgresImageVersion() string {
	if v := os.Getenv("DBMERGE_POSTGRES_VERSION"); v != "" {
		return v
	}
	return "17"
}

// PostgresContainer holds connection details for a running test container.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	Conn      *sql.DB
}

// StartPostgres launches a PostgreSQL container and opens a connection to it.
func StartPostgres(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	const (
		database = "dbmerge_test"
		user     = "dbmerge"
		password = "dbmerge"
	)

	container, err := postgres.Run(ctx,
		"postgres:"+postgresImageVersion()+"-alpine",
		postgres.WithDatabase(database),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(quietLogger),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open container connection: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		Host:      host,
		Port:      mapped.Int(),
		Database:  database,
		User:      user,
		Password:  password,
		Conn:      conn,
	}
}

// Terminate closes the connection and stops the container.
func (pc *PostgresContainer) Terminate(ctx context.Context, t *testing.T) {
	t.Helper()
	pc.Conn.Close()
	if err := pc.Container.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
