// Package db provides SQLite connectivity for the DuckLake metastore and the
// in-memory SQLite query engine.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// SQLite DSN parameters.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
)

// OpenSQLite opens a *sql.DB pool for the given SQLite file path.
//
// mode controls access and pool sizing:
//   - "write": MaxOpenConns=1, WAL journal, _txlock=immediate
//   - "read":  read-only (mode=ro), MaxOpenConns=maxOpen (0 means 4)
//
// The DuckLake metastore is owned by DuckDB writers, so the explorer only
// ever opens it in "read" mode. "write" is used to build fixtures.
func OpenSQLite(path string, mode string, maxOpen int) (*sql.DB, error) {
	if mode != "read" && mode != "write" {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	switch mode {
	case "write":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "read":
		if maxOpen <= 0 {
			maxOpen = 4
		}
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := ping(db, mode); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private in-memory database on a single connection. The
// database lives as long as the returned pool.
func OpenMemory() (*sql.DB, error) {
	name := "lakex_" + uuid.NewString()
	params := url.Values{}
	params.Set("mode", "memory")
	params.Set("cache", "shared")
	params.Set("_busy_timeout", defaultBusyTimeout)

	db, err := sql.Open("sqlite3", "file:"+name+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite (memory): %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ping(db, "memory"); err != nil {
		return nil, err
	}
	return db, nil
}

func ping(db *sql.DB, mode string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return nil
}

// buildDSN constructs a file DSN for the given mode.
func buildDSN(path string, mode string) string {
	params := url.Values{}
	params.Set("_busy_timeout", defaultBusyTimeout)

	switch mode {
	case "write":
		params.Set("_journal_mode", defaultJournalMode)
		params.Set("_synchronous", defaultSynchronous)
		params.Set("_foreign_keys", "on")
		params.Set("_txlock", "immediate")
	case "read":
		params.Set("mode", "ro")
		params.Set("_query_only", "true")
	}

	return "file:" + path + "?" + params.Encode()
}
