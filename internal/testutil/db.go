package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/udisondev/scalekit/internal/db"
)

// StartPostgres starts a PostgreSQL container and returns its DSN and a
// function that terminates it.
func StartPostgres(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("starting postgres container: %w", err)
	}
	stop := func() {
		_ = testcontainers.TerminateContainer(container)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		stop()
		return "", nil, fmt.Errorf("getting connection string: %w", err)
	}
	return dsn, stop, nil
}

// SetupTestDB starts a dedicated PostgreSQL container with the scale
// schema migrated. Everything is torn down when the test finishes.
func SetupTestDB(tb testing.TB) *db.DB {
	tb.Helper()
	ctx := context.Background()

	dsn, stop, err := StartPostgres(ctx)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(stop)

	d, err := db.New(ctx, dsn, 4)
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(d.Close)

	if err := d.Migrate(ctx); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}
	return d
}
