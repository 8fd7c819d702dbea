// Package pgtest starts a throwaway Postgres for repository tests.
package pgtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/database"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Migration is one migrations directory and its tracking table.
type Migration struct {
	Dir   string
	Table string
}

// Start runs a Postgres container, applies migrations in order and returns
// an open pool. The test is skipped under -short.
func Start(t *testing.T, migrations ...Migration) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.OpenPostgres(&database.Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, m := range migrations {
		require.NoError(t, database.RunMigrations(db, m.Dir, m.Table))
	}
	return db
}
