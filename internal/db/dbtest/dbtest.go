// Package dbtest connects tests to a real PostgreSQL instance.
//
// Tests using it are skipped unless DB_HOST_TEST is set.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/product-management/internal/config"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var migrateOnce sync.Once

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Config returns the test database configuration.
func Config() config.PostgresConfig {
	return config.PostgresConfig{
		Host:           os.Getenv("DB_HOST_TEST"),
		Port:           envOr("DB_PORT_TEST", "5432"),
		User:           envOr("DB_USER_TEST", "postgres"),
		Password:       envOr("DB_PASSWORD_TEST", "123456"),
		DBName:         envOr("DB_NAME_TEST", "product_management_test"),
		SSLMode:        envOr("DB_SSLMODE_TEST", "disable"),
		MaxConns:       10,
		MinConns:       1,
		MigrationsPath: migrationsPath(),
	}
}

func migrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "migrations"
	}
	// internal/db/dbtest -> repo root
	rootDir := filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(filename))))
	return filepath.Join(rootDir, "migrations")
}

// Open returns a migrated database, closed when the test ends.
func Open(tb testing.TB) *db.Postgres {
	tb.Helper()

	cfg := Config()
	if cfg.Host == "" {
		tb.Skip("DB_HOST_TEST is not set, skipping integration test")
	}

	var migrateErr error
	migrateOnce.Do(func() {
		migrateErr = db.ApplyMigrations(cfg)
	})
	require.NoError(tb, migrateErr, "failed to apply migrations")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	require.NoError(tb, err)
	poolConfig.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, pool.Ping(ctx), "failed to ping test database")

	pg := db.NewFromPool(pool, db.WithTxAttempts(3))
	tb.Cleanup(pg.Close)

	return pg
}

// NopTx runs the unit of work directly, for service tests with mocked
// repositories.
type NopTx struct{}

func (NopTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
