// Package engine hosts embedded SQL engines as pools of exclusive sessions.
//
// Each session owns a private in-memory database. An operation acquires a
// session, registers its row batch under a temporary relation, runs SQL and
// unregisters the relation before releasing the session.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"lake-explorer/internal/rowbatch"
)

// Session is one exclusive connection to an embedded engine.
type Session interface {
	// Register materialises batch as a relation called name.
	Register(ctx context.Context, name string, batch *rowbatch.Batch) error
	// Execute runs a query and returns all rows.
	Execute(ctx context.Context, query string) (*Result, error)
	// Unregister drops the relation; dropping a missing relation is not an error.
	Unregister(ctx context.Context, name string) error
	// Relations lists the relations currently defined in the session.
	Relations(ctx context.Context) ([]string, error)
	Close() error
}

// Result holds a fully read query result.
type Result struct {
	Columns []string
	Types   []string // engine type name per column
	Rows    [][]any
}

// scanRows reads all rows, converting []byte cells to string for text
// columns. Binary columns keep their bytes.
func scanRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}
	types := make([]string, len(colTypes))
	binary := make([]bool, len(colTypes))
	for i, ct := range colTypes {
		types[i] = ct.DatabaseTypeName()
		binary[i] = isBinaryType(types[i])
	}

	res := &Result{Columns: cols, Types: types, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok && !binary[i] {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

func isBinaryType(name string) bool {
	switch name {
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return true
	}
	return false
}
