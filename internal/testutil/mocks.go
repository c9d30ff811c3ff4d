// Package testutil provides shared mock implementations of domain interfaces
// and engine fixtures for use in tests across the codebase.
package testutil

import (
	"context"
	"errors"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/rowbatch"
)

// === Catalog Mock ===

// MockCatalog implements domain.Catalog for testing.
type MockCatalog struct {
	ListNamespacesFn func(ctx context.Context) ([]domain.NamespacePath, error)
	ListTablesFn     func(ctx context.Context, ns domain.NamespacePath) ([]domain.TableIdentifier, error)
	LoadTableFn      func(ctx context.Context, id domain.TableIdentifier) (domain.Table, error)
	InfoValue        domain.CatalogInfo
}

var _ domain.Catalog = (*MockCatalog)(nil)

// ListNamespaces implements the interface method for testing.
func (m *MockCatalog) ListNamespaces(ctx context.Context) ([]domain.NamespacePath, error) {
	if m.ListNamespacesFn != nil {
		return m.ListNamespacesFn(ctx)
	}
	panic("unexpected call to MockCatalog.ListNamespaces")
}

// ListTables implements the interface method for testing.
func (m *MockCatalog) ListTables(ctx context.Context, ns domain.NamespacePath) ([]domain.TableIdentifier, error) {
	if m.ListTablesFn != nil {
		return m.ListTablesFn(ctx, ns)
	}
	panic("unexpected call to MockCatalog.ListTables")
}

// LoadTable implements the interface method for testing.
func (m *MockCatalog) LoadTable(ctx context.Context, id domain.TableIdentifier) (domain.Table, error) {
	if m.LoadTableFn != nil {
		return m.LoadTableFn(ctx, id)
	}
	panic("unexpected call to MockCatalog.LoadTable")
}

// Info implements the interface method for testing.
func (m *MockCatalog) Info() domain.CatalogInfo { return m.InfoValue }

// === Table Mock ===

// MockTable implements domain.Table for testing. Scan uses ScanFn when set,
// otherwise it returns Head(limit) of Batch.
type MockTable struct {
	ID          domain.TableIdentifier
	TableSchema domain.TableSchema
	Props       map[string]string
	Loc         string
	Batch       *rowbatch.Batch
	ScanFn      func(ctx context.Context, limit int64) (*rowbatch.Batch, error)
	MetadataFn  func(ctx context.Context) (domain.TableMetadata, error)

	// ScanLimits records the limit of every Scan call.
	ScanLimits []int64
}

var _ domain.Table = (*MockTable)(nil)

// Identifier implements the interface method for testing.
func (m *MockTable) Identifier() domain.TableIdentifier { return m.ID }

// Schema implements the interface method for testing.
func (m *MockTable) Schema() domain.TableSchema { return m.TableSchema }

// Properties implements the interface method for testing.
func (m *MockTable) Properties() map[string]string { return m.Props }

// Location implements the interface method for testing.
func (m *MockTable) Location() string { return m.Loc }

// Metadata implements the interface method for testing.
func (m *MockTable) Metadata(ctx context.Context) (domain.TableMetadata, error) {
	if m.MetadataFn != nil {
		return m.MetadataFn(ctx)
	}
	return domain.TableMetadata{Location: m.Loc, Schema: m.TableSchema, Properties: m.Props}, nil
}

// Scan implements the interface method for testing.
func (m *MockTable) Scan(ctx context.Context, limit int64) (*rowbatch.Batch, error) {
	m.ScanLimits = append(m.ScanLimits, limit)
	if m.ScanFn != nil {
		return m.ScanFn(ctx, limit)
	}
	if m.Batch == nil {
		return nil, errors.New("MockTable has no batch")
	}
	n := m.Batch.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}
	return m.Batch.Head(n), nil
}

// === Engine Session Mock ===

// MockSession implements engine.Session. Unset functions succeed.
type MockSession struct {
	RegisterFn   func(ctx context.Context, name string, batch *rowbatch.Batch) error
	ExecuteFn    func(ctx context.Context, query string) (*engine.Result, error)
	UnregisterFn func(ctx context.Context, name string) error

	Registered   []string
	Unregistered []string
}

var _ engine.Session = (*MockSession)(nil)

// Register implements the interface method for testing.
func (m *MockSession) Register(ctx context.Context, name string, batch *rowbatch.Batch) error {
	m.Registered = append(m.Registered, name)
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, name, batch)
	}
	return nil
}

// Execute implements the interface method for testing.
func (m *MockSession) Execute(ctx context.Context, query string) (*engine.Result, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, query)
	}
	return &engine.Result{}, nil
}

// Unregister implements the interface method for testing.
func (m *MockSession) Unregister(ctx context.Context, name string) error {
	m.Unregistered = append(m.Unregistered, name)
	if m.UnregisterFn != nil {
		return m.UnregisterFn(ctx, name)
	}
	return nil
}

// Relations implements the interface method for testing.
func (m *MockSession) Relations(context.Context) ([]string, error) {
	live := map[string]int{}
	for _, n := range m.Registered {
		live[n]++
	}
	for _, n := range m.Unregistered {
		live[n]--
	}
	out := []string{}
	for n, c := range live {
		if c > 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

// Close implements the interface method for testing.
func (m *MockSession) Close() error { return nil }
