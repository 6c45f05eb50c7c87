// Package dbtest opens a migrated Postgres database for integration tests.
package dbtest

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"mini-iam/backend/internal/db"
	"mini-iam/backend/internal/db/migrate"
)

// EnvDSN names the environment variable holding the integration test DSN.
const EnvDSN = "TEST_DATABASE_URL"

// Open returns a migrated, empty database or skips the test when EnvDSN is unset.
// Tables are truncated, so run integration packages with go test -p 1.
// The connection is closed when the test ends.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s is not set; skipping Postgres integration test", EnvDSN)
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	Truncate(t, conn)
	return conn
}

// Truncate empties every application table.
func Truncate(t *testing.T, conn *sql.DB) {
	t.Helper()
	if _, err := conn.Exec(`TRUNCATE sessions, user_roles, roles, users`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

// InsertUser inserts a bare user row and returns its id.
func InsertUser(t *testing.T, conn *sql.DB, id, name, email, passwordHash string) string {
	t.Helper()
	_, err := conn.Exec(`
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`, id, name, email, passwordHash)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}
