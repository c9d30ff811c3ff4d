package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/catalog/memory"
	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/rowbatch"
)

// ErrEngineDown is returned by sessions of BrokenPool.
var ErrEngineDown = errors.New("engine down")

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DuckDBPool opens a small DuckDB pool closed at test cleanup.
func DuckDBPool(t *testing.T, sessions int) *engine.Pool {
	t.Helper()
	p, err := engine.OpenDuckDB(context.Background(), engine.DuckDBOptions{Sessions: sessions, Threads: 1}, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// SQLitePool opens a small SQLite pool closed at test cleanup.
func SQLitePool(t *testing.T, sessions int) *engine.Pool {
	t.Helper()
	p, err := engine.OpenSQLite(context.Background(), sessions, 0, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// BrokenPool returns a pool named name whose sessions fail to register
// relations, simulating an engine that cannot host work.
func BrokenPool(t *testing.T, name string) *engine.Pool {
	t.Helper()
	factory := func(context.Context) (engine.Session, error) {
		return &MockSession{RegisterFn: func(context.Context, string, *rowbatch.Batch) error {
			return ErrEngineDown
		}}, nil
	}
	p, err := engine.NewPool(context.Background(), name, 1, 0, factory, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// UsersID is default.users.
var UsersID = domain.TableIdentifier{Name: "users"}

// UsersCatalog returns a memory catalog holding
//
//	default.users      id BIGINT, name VARCHAR: (1, "a"), (2, null)
//	sales.orders       order_id, customer, amount, placed_at: 3 rows
//	sales.customers    id, name: 2 rows
func UsersCatalog(t *testing.T) *memory.Catalog {
	t.Helper()
	c := memory.New()
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.AddTable(UsersID, []domain.ColumnDescriptor{
		{Name: "id", Type: "BIGINT", Required: true},
		{Name: "name", Type: "VARCHAR"},
	}, [][]any{{1, "a"}, {2, nil}}, memory.TableOptions{Properties: map[string]string{"owner": "tests"}}))

	sales := domain.MustParseNamespace("sales")
	require.NoError(t, c.AddTable(domain.TableIdentifier{Namespace: sales, Name: "orders"}, []domain.ColumnDescriptor{
		{Name: "order_id", Type: "INTEGER", Required: true},
		{Name: "customer", Type: "VARCHAR"},
		{Name: "amount", Type: "DOUBLE"},
		{Name: "placed_at", Type: "TIMESTAMP"},
	}, [][]any{
		{1, "ann", 10.5, "2024-01-01 09:00:00"},
		{2, "bob", 20.0, "2024-01-02 10:30:00"},
		{3, "ann", nil, nil},
	}, memory.TableOptions{}))

	require.NoError(t, c.AddTable(domain.TableIdentifier{Namespace: sales, Name: "customers"}, []domain.ColumnDescriptor{
		{Name: "id", Type: "INTEGER", Required: true},
		{Name: "name", Type: "VARCHAR"},
	}, [][]any{{1, "ann"}, {2, "bob"}}, memory.TableOptions{}))
	return c
}

// NumbersBatch returns a single BIGINT column "n" holding 0..rows-1.
func NumbersBatch(t *testing.T, rows int) *rowbatch.Batch {
	t.Helper()
	data := make([][]any, rows)
	for i := range data {
		data[i] = []any{int64(i)}
	}
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64}}, nil)
	b, err := rowbatch.FromRows(schema, data)
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

// RequireNoRelations fails when any session of pool still holds a relation.
// It acquires every session, so no other operation may be in flight.
func RequireNoRelations(t *testing.T, pool *engine.Pool) {
	t.Helper()
	ctx := context.Background()
	leases := make([]*engine.Lease, 0, pool.Size())
	defer func() {
		for _, l := range leases {
			l.Release()
		}
	}()
	for i := 0; i < pool.Size(); i++ {
		l, err := pool.Acquire(ctx)
		require.NoError(t, err)
		leases = append(leases, l)
		rels, err := l.Session().Relations(ctx)
		require.NoError(t, err)
		require.Empty(t, rels, fmt.Sprintf("session %d leaked relations", i))
	}
}
