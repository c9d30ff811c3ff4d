package domain

import (
	"context"

	"lake-explorer/internal/rowbatch"
)

// Catalog resolves namespaces and tables. Implemented by ducklake.Catalog and
// memory.Catalog.
type Catalog interface {
	ListNamespaces(ctx context.Context) ([]NamespacePath, error)
	ListTables(ctx context.Context, namespace NamespacePath) ([]TableIdentifier, error)
	// LoadTable returns a NotFoundError when the table does not exist.
	LoadTable(ctx context.Context, id TableIdentifier) (Table, error)
	Info() CatalogInfo
}

// Table is a loaded handle on one table's current version. Handles are not
// cached across operations.
type Table interface {
	Identifier() TableIdentifier
	Schema() TableSchema
	Properties() map[string]string
	Location() string
	Metadata(ctx context.Context) (TableMetadata, error)
	// Scan materialises up to limit rows (all rows when limit <= 0). The
	// caller releases the returned batch.
	Scan(ctx context.Context, limit int64) (*rowbatch.Batch, error)
}
