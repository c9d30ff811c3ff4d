package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/domain"
)

const fixtureYAML = `
namespaces:
  - name: default
    tables:
      - name: users
        properties:
          owner: data-team
        columns:
          - {name: id, type: BIGINT, required: true}
          - {name: name, type: VARCHAR, doc: display name}
        rows:
          - [1, "a"]
          - [2, null]
  - name: sales.emea
    tables:
      - name: orders
        location: s3://lake/sales/orders
        columns:
          - {name: order_id, type: INTEGER}
          - {name: amount, type: DOUBLE}
          - {name: placed_at, type: TIMESTAMP}
        rows:
          - [10, 9.5, "2024-01-02 03:04:05"]
  - name: empty
`

func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoad_Namespaces(t *testing.T) {
	c := loadFixture(t)
	ctx := context.Background()

	nss, err := c.ListNamespaces(ctx)
	require.NoError(t, err)
	var names []string
	for _, ns := range nss {
		names = append(names, ns.String())
	}
	assert.Equal(t, []string{"default", "empty", "sales.emea"}, names)
	assert.Equal(t, CatalogType, c.Info().Type)
	assert.Contains(t, c.Info().Location, "catalog.yaml")
}

func TestListTables(t *testing.T) {
	c := loadFixture(t)
	ctx := context.Background()

	ids, err := c.ListTables(ctx, domain.MustParseNamespace("sales.emea"))
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "sales.emea.orders", ids[0].QualifiedName())

	ids, err = c.ListTables(ctx, domain.MustParseNamespace("empty"))
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = c.ListTables(ctx, domain.MustParseNamespace("missing"))
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestLoadTable(t *testing.T) {
	c := loadFixture(t)
	ctx := context.Background()

	tbl, err := c.LoadTable(ctx, domain.TableIdentifier{Name: "users"})
	require.NoError(t, err)
	assert.Equal(t, "memory://default.users", tbl.Location())
	assert.Equal(t, map[string]string{"owner": "data-team"}, tbl.Properties())

	schema := tbl.Schema()
	require.Len(t, schema.Fields, 2)
	assert.Equal(t, domain.ColumnDescriptor{ID: 1, Name: "id", Type: "BIGINT", Required: true}, schema.Fields[0])
	assert.True(t, schema.Fields[1].Nullable())
	assert.Equal(t, "display name", schema.Fields[1].Doc)

	batch, err := tbl.Scan(ctx, 0)
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, batch.Rows())

	meta, err := tbl.Metadata(ctx)
	require.NoError(t, err)
	require.NotNil(t, meta.RecordCount)
	assert.Equal(t, int64(2), *meta.RecordCount)
	assert.NotEmpty(t, meta.TableUUID)
	assert.Len(t, meta.Snapshots, 1)

	_, err = c.LoadTable(ctx, domain.TableIdentifier{Name: "nope"})
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestScan_Limit(t *testing.T) {
	c := loadFixture(t)
	tbl, err := c.LoadTable(context.Background(), domain.TableIdentifier{Name: "users"})
	require.NoError(t, err)

	batch, err := tbl.Scan(context.Background(), 1)
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, int64(1), batch.NumRows())
}

func TestFailScans(t *testing.T) {
	c := loadFixture(t)
	id := domain.TableIdentifier{Name: "users"}
	tbl, err := c.LoadTable(context.Background(), id)
	require.NoError(t, err)

	boom := errors.New("storage offline")
	c.FailScans(id, boom)
	_, err = tbl.Scan(context.Background(), 0)
	assert.ErrorIs(t, err, boom)

	c.FailScans(id, nil)
	batch, err := tbl.Scan(context.Background(), 0)
	require.NoError(t, err)
	batch.Release()
}

func TestAddTable_Replace(t *testing.T) {
	c := New()
	id := domain.TableIdentifier{Namespace: domain.MustParseNamespace("a"), Name: "t"}
	cols := []domain.ColumnDescriptor{{Name: "x", Type: "INTEGER"}}
	require.NoError(t, c.AddTable(id, cols, [][]any{{1}}, TableOptions{}))

	old, err := c.LoadTable(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, c.AddTable(id, cols, [][]any{{1}, {2}}, TableOptions{}))

	_, err = old.Scan(context.Background(), 0)
	require.Error(t, err)

	fresh, err := c.LoadTable(context.Background(), id)
	require.NoError(t, err)
	batch, err := fresh.Scan(context.Background(), 0)
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, int64(2), batch.NumRows())
}

func TestAddTable_Invalid(t *testing.T) {
	c := New()
	id := domain.TableIdentifier{Name: "t"}
	err := c.AddTable(id, nil, nil, TableOptions{})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	err = c.AddTable(id, []domain.ColumnDescriptor{{Name: "x", Type: "GEOMETRY"}}, nil, TableOptions{})
	assert.ErrorContains(t, err, "unsupported type")

	err = c.AddTable(id, []domain.ColumnDescriptor{{Name: "x", Type: "INTEGER"}}, [][]any{{"abc"}}, TableOptions{})
	assert.Error(t, err)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	doc := `{"namespaces":[{"name":"default","tables":[{"name":"t","columns":[{"name":"v","type":"DOUBLE"}],"rows":[[1.5],[null]]}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	tbl, err := c.LoadTable(context.Background(), domain.TableIdentifier{Name: "t"})
	require.NoError(t, err)
	batch, err := tbl.Scan(context.Background(), 0)
	require.NoError(t, err)
	defer batch.Release()
	assert.Equal(t, [][]any{{1.5}, {nil}}, batch.Rows())
}
