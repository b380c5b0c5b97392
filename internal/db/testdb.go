package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a schema-initialised database in the test's temp dir.
// A file is used instead of ":memory:" so the pool can hold several
// connections and concurrent tests contend for the write lock the same way
// the server does.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "najdeno.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return database
}
