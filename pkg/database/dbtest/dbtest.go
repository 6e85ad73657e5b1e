// Package dbtest opens a migrated Postgres database for repository tests.
// Tests are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-mutual-aid/pkg/database"
)

// migrationLock serializes goose runs from test binaries sharing one database.
const migrationLock = 724001

// Open connects to TEST_DATABASE_URL and applies every migration. Rows are
// not truncated; tests must use fresh ids.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(database.Config{DSN: dsn, MaxConns: 10, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	conn, err := db.Connx(ctx)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLock)
	require.NoError(t, err)
	defer func() { _, _ = conn.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, migrationLock) }()

	require.NoError(t, database.RunMigrations(db.DB))
	return db
}

// InsertUser stores a bare account row and returns its id.
func InsertUser(t *testing.T, db *sqlx.DB, id string) string {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`, id, "user "+id, id+"@example.test")
	require.NoError(t, err)
	return id
}
