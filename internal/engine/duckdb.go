package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/sqlrewrite"
)

// DuckDBOptions configures DuckDB sessions.
type DuckDBOptions struct {
	Sessions     int
	MemoryLimit  string // e.g. "2GB"; empty keeps the DuckDB default
	Threads      int    // 0 keeps the DuckDB default
	QueryTimeout time.Duration
}

// OpenDuckDB opens a pool of DuckDB sessions, each its own in-memory database.
func OpenDuckDB(ctx context.Context, opts DuckDBOptions, logger *slog.Logger) (*Pool, error) {
	factory := func(ctx context.Context) (Session, error) {
		return newDuckDBSession(ctx, opts)
	}
	return NewPool(ctx, domain.EngineDuckDB, opts.Sessions, opts.QueryTimeout, factory, logger)
}

var _ Session = (*duckDBSession)(nil)

type duckDBSession struct {
	db *sql.DB
}

func newDuckDBSession(ctx context.Context, opts DuckDBOptions) (*duckDBSession, error) {
	var settings []string
	if opts.MemoryLimit != "" {
		settings = append(settings, fmt.Sprintf("SET memory_limit = %s", sqlrewrite.QuoteLiteral(opts.MemoryLimit)))
	}
	if opts.Threads > 0 {
		settings = append(settings, fmt.Sprintf("SET threads = %d", opts.Threads))
	}
	// Sessions only see registered relations: no files, URLs or extensions,
	// and user SQL cannot SET the restriction away. lock_configuration must
	// be the last statement.
	settings = append(settings,
		"SET enable_external_access = false",
		"SET lock_configuration = true",
	)

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("duckdb connector: %w", err)
	}

	db := sql.OpenDB(connector)
	// One connection per session keeps registered relations on the
	// connection that runs the query.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Settings are database-wide, so they run once rather than per connection.
	for _, stmt := range settings {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", stmt, err)
		}
	}
	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("probe duckdb: %w", err)
	}
	return &duckDBSession{db: db}, nil
}

// Register creates a table shaped like the batch schema and loads the rows
// through the DuckDB appender.
func (s *duckDBSession) Register(ctx context.Context, name string, batch *rowbatch.Batch) error {
	cols := columnsFor(batch.Schema(), duckDialect{})
	if len(cols) == 0 {
		return fmt.Errorf("register %s: batch has no columns", name)
	}
	if _, err := s.db.ExecContext(ctx, createTableSQL(name, cols)); err != nil {
		return fmt.Errorf("create relation %s: %w", name, err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	return conn.Raw(func(raw any) error {
		driverConn, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected raw conn type %T", raw)
		}
		appender, err := duckdb.NewAppenderFromConn(driverConn, "", name)
		if err != nil {
			return fmt.Errorf("create appender for %s: %w", name, err)
		}

		err = eachRow(batch, cols, func(vals []driver.Value) error {
			return appender.AppendRow(vals...)
		})
		if closeErr := appender.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("append rows to %s: %w", name, err)
		}
		return nil
	})
}

func (s *duckDBSession) Execute(ctx context.Context, query string) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck
	return scanRows(rows)
}

func (s *duckDBSession) Unregister(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlrewrite.QuoteIdentifier(name))
	return err
}

func (s *duckDBSession) Relations(ctx context.Context) ([]string, error) {
	return listNames(ctx, s.db,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
}

func (s *duckDBSession) Close() error { return s.db.Close() }

func listNames(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
