/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package testing starts disposable database servers for integration tests.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mariadb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/acronis/go-dbjournal"
)

// Container images used by integration tests.
const (
	PostgresImage = "postgres:16-alpine"
	MariaDBImage  = "mariadb:11.4"
)

const (
	testDatabase = "journal_test"
	testUser     = "journal"
	testPassword = "journal"
)

const startupTimeout = 2 * time.Minute

// skipUnlessIntegration skips t under -short or when no container runtime is available.
func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// MustRunPostgres starts a PostgreSQL server for the test and returns a config pointing at it.
// The container is terminated when the test finishes.
func MustRunPostgres(t *testing.T, dialect dbjournal.Dialect) *dbjournal.Config {
	t.Helper()
	skipUnlessIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	ctr, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := dbjournal.NewDefaultConfig(nil)
	cfg.Dialect = dialect
	cfg.URL = dsn
	return cfg
}

// MustRunMariaDB starts a MariaDB server for the test and returns a config pointing at it.
// The container is terminated when the test finishes.
func MustRunMariaDB(t *testing.T) *dbjournal.Config {
	t.Helper()
	skipUnlessIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	ctr, err := mariadb.Run(ctx, MariaDBImage,
		mariadb.WithDatabase(testDatabase),
		mariadb.WithUsername(testUser),
		mariadb.WithPassword(testPassword),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "parseTime=true", "multiStatements=true")
	require.NoError(t, err)

	cfg := dbjournal.NewDefaultConfig(nil)
	cfg.Dialect = dbjournal.DialectMySQL
	cfg.URL = dsn
	return cfg
}
