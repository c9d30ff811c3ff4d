package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite creates a writable SQLite file in t.TempDir() and registers
// cleanup. It returns the pool and the file path so tests can reopen the
// file read-only.
func OpenTestSQLite(t *testing.T) (*sql.DB, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.sqlite")
	db, err := OpenSQLite(path, "write", 0)
	if err != nil {
		t.Fatalf("open test sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}
