package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lake-explorer/internal/db"
	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/sqlrewrite"
)

// Multi-row INSERTs stay under SQLite's bound-parameter limit.
const (
	sqliteMaxRowsPerInsert = 200
	sqliteMaxParams        = 30000
)

// OpenSQLite opens a pool of in-memory SQLite sessions. It serves as the
// secondary SQL engine when DuckDB is unavailable.
func OpenSQLite(ctx context.Context, sessions int, queryTimeout time.Duration, logger *slog.Logger) (*Pool, error) {
	factory := func(context.Context) (Session, error) {
		conn, err := db.OpenMemory()
		if err != nil {
			return nil, err
		}
		return &sqliteSession{db: conn}, nil
	}
	return NewPool(ctx, domain.EngineSQLite, sessions, queryTimeout, factory, logger)
}

var _ Session = (*sqliteSession)(nil)

type sqliteSession struct {
	db *sql.DB
}

// Register creates the relation and inserts rows in one transaction.
func (s *sqliteSession) Register(ctx context.Context, name string, batch *rowbatch.Batch) error {
	cols := columnsFor(batch.Schema(), sqliteDialect{})
	if len(cols) == 0 {
		return fmt.Errorf("register %s: batch has no columns", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, createTableSQL(name, cols)); err != nil {
		return fmt.Errorf("create relation %s: %w", name, err)
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	prefix := "INSERT INTO " + sqlrewrite.QuoteIdentifier(name) + " VALUES "

	chunk := max(1, min(sqliteMaxRowsPerInsert, sqliteMaxParams/len(cols)))
	args := make([]any, 0, chunk*len(cols))
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		stmt := prefix + strings.TrimSuffix(strings.Repeat(rowPlaceholder+", ", pending), ", ")
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
		args = args[:0]
		pending = 0
		return nil
	}

	err = eachRow(batch, cols, func(vals []driver.Value) error {
		for _, v := range vals {
			args = append(args, v)
		}
		pending++
		if pending == chunk {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteSession) Execute(ctx context.Context, query string) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanRows(rows)
}

func (s *sqliteSession) Unregister(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlrewrite.QuoteIdentifier(name))
	return err
}

func (s *sqliteSession) Relations(ctx context.Context) ([]string, error) {
	return listNames(ctx, s.db,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
}

func (s *sqliteSession) Close() error { return s.db.Close() }
