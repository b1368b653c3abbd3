package testutil

import (
	"context"
	"testing"
	"time"

	"earnify/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// TestDatabase is a migrated, throwaway Postgres holding the ledger schema
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *database.DB
	URL       string
}

// SetupTestDatabase starts a container per test. Ledger tests rely on real
// SERIALIZABLE conflicts, so nothing here is shared between tests.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("earnify_test"),
		postgres.WithUsername("earnify"),
		postgres.WithPassword("earnify"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"app":  "earnify",
			"test": t.Name(),
		}),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := testcontainers.TerminateContainer(container, testcontainers.StopContext(ctx)); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrationsWithURL(url), "failed to migrate test database")

	db, err := database.NewConnectionWithOptions(ctx, url, database.PoolOptions{MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return &TestDatabase{Container: container, DB: db, URL: url}
}
