package explorer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/catalog/memory"
	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/service/executor"
	"lake-explorer/internal/testutil"
)

var ctx = context.Background()

var ordersID = domain.TableIdentifier{Namespace: domain.MustParseNamespace("sales"), Name: "orders"}

type fixture struct {
	svc     *Service
	catalog *memory.Catalog
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, primary, fallback *engine.Pool) fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	cat := testutil.UsersCatalog(t)
	svc := New(cat, Options{
		Primary:         primary,
		QueryFallback:   fallback,
		StorageEndpoint: "http://localhost:9000",
		Logger:          slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	return fixture{svc: svc, catalog: cat, logs: logs}
}

// mockFixture serves a single table backed by testutil.NumbersBatch.
func mockFixture(t *testing.T, rows int, primary *engine.Pool) (*Service, *testutil.MockTable) {
	t.Helper()
	tbl := &testutil.MockTable{ID: testutil.UsersID, Batch: testutil.NumbersBatch(t, rows)}
	cat := &testutil.MockCatalog{LoadTableFn: func(_ context.Context, id domain.TableIdentifier) (domain.Table, error) {
		if id.String() != testutil.UsersID.String() {
			return nil, domain.ErrTableNotFound(id)
		}
		return tbl, nil
	}}
	return New(cat, Options{Primary: primary, Logger: testutil.DiscardLogger()}), tbl
}

// === Browsing ===

func TestListNamespacesAndTables(t *testing.T) {
	f := newFixture(t, nil, nil)

	nss, err := f.svc.ListNamespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "sales"}, nss)

	tables, next, err := f.svc.ListTables(ctx, domain.MustParseNamespace("sales"), domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)
	assert.Empty(t, next)

	_, _, err = f.svc.ListTables(ctx, domain.MustParseNamespace("missing"), domain.PageRequest{})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListTables_Pagination(t *testing.T) {
	f := newFixture(t, nil, nil)
	sales := domain.MustParseNamespace("sales")

	first, next, err := f.svc.ListTables(ctx, sales, domain.PageRequest{MaxResults: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, first)
	require.NotEmpty(t, next)

	second, next, err := f.svc.ListTables(ctx, sales, domain.PageRequest{MaxResults: 1, PageToken: next})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, second)
	assert.Empty(t, next)
}

func TestAllTables_NamespaceFailureIsEmpty(t *testing.T) {
	logs := &bytes.Buffer{}
	cat := &testutil.MockCatalog{
		ListNamespacesFn: func(context.Context) ([]domain.NamespacePath, error) {
			return []domain.NamespacePath{domain.MustParseNamespace("good"), domain.MustParseNamespace("bad")}, nil
		},
		ListTablesFn: func(_ context.Context, ns domain.NamespacePath) ([]domain.TableIdentifier, error) {
			if ns.String() == "bad" {
				return nil, errors.New("metastore locked")
			}
			return []domain.TableIdentifier{{Namespace: ns, Name: "t1"}, {Namespace: ns, Name: "t2"}}, nil
		},
	}
	svc := New(cat, Options{Logger: slog.New(slog.NewTextHandler(logs, nil))})

	groups, err := svc.AllTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.NamespaceTables{
		{Namespace: "good", Tables: []string{"t1", "t2"}},
		{Namespace: "bad", Tables: []string{}},
	}, groups)
	assert.Contains(t, logs.String(), "metastore locked")
}

func TestSearch(t *testing.T) {
	f := newFixture(t, nil, nil)

	tests := []struct {
		term string
		want []domain.TableSearchResult
	}{
		{"ORD", []domain.TableSearchResult{{Namespace: "sales", TableName: "orders", FullName: "sales.orders"}}},
		{"users", []domain.TableSearchResult{{Namespace: "default", TableName: "users", FullName: "users"}}},
		{"s", []domain.TableSearchResult{
			{Namespace: "default", TableName: "users", FullName: "users"},
			{Namespace: "sales", TableName: "customers", FullName: "sales.customers"},
			{Namespace: "sales", TableName: "orders", FullName: "sales.orders"},
		}},
		{"nothing", []domain.TableSearchResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got, err := f.svc.Search(ctx, tt.term)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := f.svc.Search(ctx, "  ")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSchemaAndMetadata(t *testing.T) {
	f := newFixture(t, nil, nil)

	schema, err := f.svc.Schema(ctx, testutil.UsersID)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, schema.ColumnNames())
	assert.True(t, schema.Fields[0].Required)

	md, err := f.svc.Metadata(ctx, testutil.UsersID)
	require.NoError(t, err)
	assert.Equal(t, "tests", md.Properties["owner"])
	require.NotNil(t, md.RecordCount)
	assert.Equal(t, int64(2), *md.RecordCount)

	missing := domain.TableIdentifier{Name: "nope"}
	var nf *domain.NotFoundError
	_, err = f.svc.Schema(ctx, missing)
	assert.ErrorAs(t, err, &nf)
	_, err = f.svc.Metadata(ctx, missing)
	assert.ErrorAs(t, err, &nf)
}

// === Preview ===

func TestPreview_Primary(t *testing.T) {
	pool := testutil.DuckDBPool(t, 2)
	f := newFixture(t, pool, nil)

	res, err := f.svc.Preview(ctx, testutil.UsersID, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineDuckDB, res.Engine)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, res.Data)
	assert.Equal(t, 10, res.Limit)
	testutil.RequireNoRelations(t, pool)
}

func TestPreview_FallbackEnvelope(t *testing.T) {
	f := newFixture(t, testutil.BrokenPool(t, domain.EngineDuckDB), nil)

	res, err := f.svc.Preview(ctx, testutil.UsersID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineArrow, res.Engine)
	assert.Equal(t, executor.DefaultPreviewLimit, res.Limit)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, res.Data)

	logs := f.logs.String()
	assert.Contains(t, logs, "level=WARN")
	assert.Contains(t, logs, "operation=preview")
	assert.Contains(t, logs, "table=default.users")
}

func TestPreview_ScansOnlyLimitAndClamps(t *testing.T) {
	svc, tbl := mockFixture(t, 50, nil)
	svc.maxPreview = 20

	res, err := svc.Preview(ctx, testutil.UsersID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, res.RowCount)

	res, err = svc.Preview(ctx, testutil.UsersID, 500)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Limit)
	assert.Equal(t, 20, res.RowCount)
	assert.Equal(t, []int64{5, 20}, tbl.ScanLimits)
}

// === Query ===

func TestExecuteQuery_DefaultUsers(t *testing.T) {
	pool := testutil.DuckDBPool(t, 2)
	f := newFixture(t, pool, testutil.SQLitePool(t, 1))

	out, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, "SELECT * FROM users", 0)
	require.NoError(t, err)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, domain.EngineDuckDB, out.Engine)
	assert.Equal(t, "SELECT * FROM users", out.Query)
	assert.Contains(t, out.ProcessedQuery, "tmp_users_")
	assert.True(t, strings.HasSuffix(out.ProcessedQuery, "LIMIT 100"))
	assert.Equal(t, 2, out.Result.RowCount)
	testutil.RequireNoRelations(t, pool)
}

func TestExecuteQuery_FallsBackToSecondary(t *testing.T) {
	fallback := testutil.SQLitePool(t, 1)
	f := newFixture(t, testutil.BrokenPool(t, domain.EngineDuckDB), fallback)

	out, err := f.svc.ExecuteQuery(ctx, ordersID, "SELECT customer, count(*) AS n FROM sales.orders GROUP BY customer ORDER BY customer", 10)
	require.NoError(t, err)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, domain.EngineSQLite, out.Engine)
	assert.Equal(t, [][]any{{"ann", int64(2)}, {"bob", int64(1)}}, out.Result.Data)
	assert.Contains(t, f.logs.String(), "operation=query")
	testutil.RequireNoRelations(t, fallback)
}

func TestExecuteQuery_BothEnginesFail(t *testing.T) {
	f := newFixture(t, testutil.BrokenPool(t, domain.EngineDuckDB), testutil.BrokenPool(t, domain.EngineSQLite))

	_, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, "SELECT 1", 1)
	var eu *domain.EngineUnavailableError
	require.ErrorAs(t, err, &eu)
	assert.Equal(t, domain.EngineSQLite, eu.Engine)
}

func TestExecuteQuery_NoEngines(t *testing.T) {
	f := newFixture(t, nil, nil)
	_, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, "SELECT 1", 1)
	var eu *domain.EngineUnavailableError
	assert.ErrorAs(t, err, &eu)
}

func TestExecuteQuery_SQLErrorDoesNotFallBack(t *testing.T) {
	f := newFixture(t, testutil.DuckDBPool(t, 1), testutil.SQLitePool(t, 1))

	out, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, "SELECT nope FROM users", 10)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
	assert.Equal(t, domain.EngineDuckDB, out.Engine)
	assert.NotContains(t, f.logs.String(), "fallback")
}

func TestExecuteQuery_ReadOnlyGuard(t *testing.T) {
	svc, tbl := mockFixture(t, 3, testutil.DuckDBPool(t, 1))

	for _, sql := range []string{"DROP TABLE users", "SELECT 1; DELETE FROM users", ""} {
		out, err := svc.ExecuteQuery(ctx, testutil.UsersID, sql, 10)
		require.NoError(t, err, sql)
		assert.False(t, out.Success, sql)
		assert.NotEmpty(t, out.Error, sql)
		assert.Equal(t, sql, out.Query)
	}
	assert.Empty(t, tbl.ScanLimits)
}

func TestExecuteQuery_CannotReadLocalFiles(t *testing.T) {
	secret := filepath.Join(t.TempDir(), "secret.csv")
	require.NoError(t, os.WriteFile(secret, []byte("k,v\napi_key,hunter2\n"), 0o600))
	f := newFixture(t, testutil.DuckDBPool(t, 1), nil)

	for _, sql := range []string{
		"SELECT * FROM '" + secret + "'",
		`SELECT * FROM "read_csv"('` + secret + `')`,
		"SELECT * FROM users JOIN read_csv_auto('" + secret + "') ON true",
	} {
		out, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, sql, 10)
		require.NoError(t, err, sql)
		assert.False(t, out.Success, sql)
		assert.Nil(t, out.Result, sql)
	}
}

func TestExecuteQuery_DescribeUsers(t *testing.T) {
	f := newFixture(t, testutil.DuckDBPool(t, 1), nil)

	out, err := f.svc.ExecuteQuery(ctx, testutil.UsersID, "DESCRIBE users", 0)
	require.NoError(t, err)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, domain.EngineDuckDB, out.Engine)
	assert.Equal(t, 2, out.Result.RowCount)
}

func TestExecuteQuery_LimitClamped(t *testing.T) {
	svc, tbl := mockFixture(t, 30, testutil.DuckDBPool(t, 1))
	svc.maxQuery = 7

	out, err := svc.ExecuteQuery(ctx, testutil.UsersID, "SELECT n FROM users", 1000)
	require.NoError(t, err)
	require.True(t, out.Success, out.Error)
	assert.Equal(t, 7, out.Result.RowCount)
	assert.Equal(t, 7, out.Result.Limit)
	assert.Equal(t, []int64{0}, tbl.ScanLimits)
}

// === Statistics ===

func TestStatistics_DefaultUsers(t *testing.T) {
	pool := testutil.DuckDBPool(t, 1)
	f := newFixture(t, pool, nil)

	stats, err := f.svc.Statistics(ctx, testutil.UsersID)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineDuckDB, stats.Engine)
	assert.Equal(t, int64(2), stats.TotalRows)
	assert.Equal(t, domain.NewColumnStatistics(2, 2, 0), stats.ColumnStatistics["id"])
	assert.Equal(t, domain.ColumnStatistics{Count: 2, DistinctCount: 1, NullCount: 1, NullPercentage: 50}, stats.ColumnStatistics["name"])
	assert.Empty(t, stats.Note)
	testutil.RequireNoRelations(t, pool)
}

func TestStatistics_FallbackAfterPrimaryFailure(t *testing.T) {
	f := newFixture(t, testutil.BrokenPool(t, domain.EngineDuckDB), nil)

	stats, err := f.svc.Statistics(ctx, testutil.UsersID)
	require.NoError(t, err)
	assert.Equal(t, domain.EngineArrow, stats.Engine)
	assert.Equal(t, executor.SampleNote, stats.Note)
	assert.Equal(t, int64(2), stats.TotalRows)
	assert.Equal(t, int64(1), stats.ColumnStatistics["name"].NullCount)
	assert.Contains(t, f.logs.String(), "operation=statistics")
}

func TestStatistics_NoPrimaryScansSample(t *testing.T) {
	svc, tbl := mockFixture(t, executor.SampleRows+10, nil)

	stats, err := svc.Statistics(ctx, testutil.UsersID)
	require.NoError(t, err)
	assert.Equal(t, int64(executor.SampleRows), stats.TotalRows)
	assert.Equal(t, []int64{executor.SampleRows}, tbl.ScanLimits)
}

// === Errors ===

func TestOperations_TableNotFound(t *testing.T) {
	f := newFixture(t, testutil.DuckDBPool(t, 1), nil)
	missing := domain.TableIdentifier{Namespace: domain.MustParseNamespace("sales"), Name: "missing"}
	var nf *domain.NotFoundError

	_, err := f.svc.Preview(ctx, missing, 1)
	assert.ErrorAs(t, err, &nf)
	_, err = f.svc.ExecuteQuery(ctx, missing, "SELECT 1", 1)
	assert.ErrorAs(t, err, &nf)
	_, err = f.svc.Statistics(ctx, missing)
	assert.ErrorAs(t, err, &nf)
}

func TestOperations_ScanFailed(t *testing.T) {
	f := newFixture(t, testutil.DuckDBPool(t, 1), testutil.SQLitePool(t, 1))
	boom := errors.New("object store timeout")
	f.catalog.FailScans(ordersID, boom)

	var sf *domain.ScanFailedError
	_, err := f.svc.Preview(ctx, ordersID, 1)
	require.ErrorAs(t, err, &sf)
	assert.ErrorIs(t, err, boom)

	_, err = f.svc.ExecuteQuery(ctx, ordersID, "SELECT * FROM orders", 1)
	assert.ErrorAs(t, err, &sf)
	_, err = f.svc.Statistics(ctx, ordersID)
	assert.ErrorAs(t, err, &sf)
	assert.NotContains(t, f.logs.String(), "fallback")
}

// === Overview and connection ===

func TestOverview(t *testing.T) {
	f := newFixture(t, nil, nil)
	ov, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ov.TotalNamespaces)
	assert.Equal(t, 3, ov.TotalTables)
	assert.Equal(t, NamespaceSummary{Name: "sales", TableCount: 2, Tables: []string{"customers", "orders"}}, ov.Namespaces[1])
}

func TestConnectionInfo(t *testing.T) {
	f := newFixture(t, testutil.DuckDBPool(t, 1), testutil.SQLitePool(t, 1))
	ci := f.svc.ConnectionInfo()
	assert.Equal(t, memory.CatalogType, ci.CatalogType)
	assert.Equal(t, "http://localhost:9000", ci.StorageEndpoint)
	assert.True(t, ci.DuckDBAvailable)
	assert.Equal(t, []EngineStatus{
		{Name: domain.EngineDuckDB, Role: RolePrimary, Available: true},
		{Name: domain.EngineSQLite, Role: RoleQueryFallback, Available: true},
		{Name: domain.EngineArrow, Role: RoleFallback, Available: true},
	}, ci.Engines)

	degraded := newFixture(t, nil, nil).svc.ConnectionInfo()
	assert.False(t, degraded.DuckDBAvailable)
	assert.Equal(t, []EngineStatus{
		{Name: domain.EngineDuckDB, Role: RolePrimary},
		{Name: domain.EngineArrow, Role: RoleFallback, Available: true},
	}, degraded.Engines)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10, clamp(0, 10, 100))
	assert.Equal(t, 100, clamp(500, 10, 100))
	assert.Equal(t, 50, clamp(50, 10, 100))
	assert.Equal(t, 500, clamp(500, 10, 0))
}
