package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/domain"
)

const testFixture = `
namespaces:
  - name: default
    tables:
      - name: users
        columns:
          - {name: id, type: BIGINT, required: true}
          - {name: name, type: VARCHAR}
        rows:
          - [1, ann]
          - [2, null]
  - name: sales
    tables:
      - name: orders
        properties: {owner: finance}
        columns:
          - {name: order_id, type: INTEGER, required: true, doc: primary key}
          - {name: amount, type: DOUBLE}
        rows:
          - [1, 10.5]
          - [2, 20.0]
          - [3, null]
      - name: refunds
        columns:
          - {name: id, type: INTEGER}
        rows: []
`

// writeConfig writes a memory-catalog config with DuckDB disabled, so
// queries run on the SQLite fallback.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	fixture := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(testFixture), 0o600))
	cfg := "catalog:\n  type: memory\n  fixture_path: " + fixture + "\nengine:\n  enabled: false\n"
	path := filepath.Join(dir, "lakex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	res := run(t, "", args...)
	require.NoError(t, res.err, res.stderr)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out), res.stdout)
	return out
}

func TestVersion(t *testing.T) {
	out := runJSON(t, "version")
	assert.Equal(t, "dev", out["version"])

	res := run(t, "", "version", "-o", "table")
	require.NoError(t, res.err)
	assert.Equal(t, "lakex version dev (commit: none)\n", res.stdout)
}

func TestOutputFormat_Invalid(t *testing.T) {
	res := run(t, "", "version", "-o", "yaml")
	assert.ErrorContains(t, res.err, `unsupported output format "yaml"`)
}

func TestOutputFormat_DefaultsToJSONWhenNotTerminal(t *testing.T) {
	assert.Equal(t, outputJSON, defaultOutput(&bytes.Buffer{}))
}

func TestNamespaces(t *testing.T) {
	out := runJSON(t, "--config", writeConfig(t), "namespaces")
	assert.Equal(t, []any{"default", "sales"}, out["namespaces"])
	assert.Equal(t, float64(2), out["count"])
}

func TestTables(t *testing.T) {
	cfg := writeConfig(t)

	res := run(t, "", "--config", cfg, "tables")
	require.NoError(t, res.err, res.stderr)
	var groups []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &groups))
	require.Len(t, groups, 2)
	assert.Equal(t, []any{"orders", "refunds"}, groups[1]["tables"])

	out := runJSON(t, "--config", cfg, "tables", "sales", "--max-results", "1")
	assert.Equal(t, []any{"orders"}, out["tables"])
	assert.NotEmpty(t, out["next_page_token"])

	res = run(t, "", "--config", cfg, "-o", "table", "tables", "sales")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "TABLE\n")
	assert.Contains(t, res.stdout, "refunds")
}

func TestOverviewAndSearch(t *testing.T) {
	cfg := writeConfig(t)

	out := runJSON(t, "--config", cfg, "overview")
	assert.Equal(t, float64(3), out["total_tables"])

	out = runJSON(t, "--config", cfg, "search", "REF")
	assert.Equal(t, []any{map[string]any{"namespace": "sales", "table_name": "refunds", "full_name": "sales.refunds"}}, out["results"])

	res := run(t, "", "--config", cfg, "-o", "table", "overview")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "2 namespaces, 3 tables")
}

func TestInfo(t *testing.T) {
	cfg := writeConfig(t)

	out := runJSON(t, "--config", cfg, "info", "sales.orders")
	md := out["metadata"].(map[string]any)
	assert.Equal(t, map[string]any{"owner": "finance"}, md["properties"])
	assert.Equal(t, float64(3), md["record_count"])

	res := run(t, "", "--config", cfg, "-o", "table", "info", "sales.orders")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "record_count:")
	assert.Contains(t, res.stdout, "primary key")
	assert.Contains(t, res.stdout, `{"owner":"finance"}`)

	res = run(t, "", "--config", cfg, "info", "sales.missing")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, res.err, &nf)
}

func TestPreview(t *testing.T) {
	cfg := writeConfig(t)

	out := runJSON(t, "--config", cfg, "preview", "users", "-n", "1")
	assert.Equal(t, float64(1), out["row_count"])
	assert.Equal(t, "arrow", out["engine"])

	res := run(t, "", "--config", cfg, "-o", "table", "preview", "default.users")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "NULL")
	assert.Contains(t, res.stderr, "(2 rows, engine arrow)")
}

func TestQuery(t *testing.T) {
	cfg := writeConfig(t)

	out := runJSON(t, "--config", cfg, "query", "sales.orders", "SELECT count(*) AS n FROM sales.orders")
	assert.Equal(t, true, out["success"], out["error"])
	assert.Equal(t, "sqlite", out["engine"])
	assert.Equal(t, []any{[]any{float64(3)}}, out["result"].(map[string]any)["data"])
}

func TestQuery_FromStdin(t *testing.T) {
	res := run(t, "SELECT order_id FROM orders ORDER BY order_id\n", "--config", writeConfig(t), "-o", "table", "query", "sales.orders")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "ORDER_ID\n1\n2\n3\n", res.stdout)
}

func TestQuery_Failures(t *testing.T) {
	cfg := writeConfig(t)

	res := run(t, "", "--config", cfg, "query", "sales.orders", "DROP TABLE orders")
	assert.ErrorContains(t, res.err, "query failed")
	assert.Contains(t, res.stdout, `"success": false`)

	res = run(t, "", "--config", cfg, "query", "sales.orders")
	assert.ErrorContains(t, res.err, "provide SQL")
}

func TestStats(t *testing.T) {
	cfg := writeConfig(t)

	out := runJSON(t, "--config", cfg, "stats", "sales.orders")
	assert.Equal(t, float64(3), out["total_rows"])
	amount := out["column_statistics"].(map[string]any)["amount"].(map[string]any)
	assert.Equal(t, 33.33, amount["null_percentage"])

	res := run(t, "", "--config", cfg, "-o", "table", "stats", "sales.orders")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Statistics based on sample of 10,000 rows")
	assert.Contains(t, res.stdout, "33.33")
}

func TestConfigErrors(t *testing.T) {
	res := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "namespaces")
	assert.ErrorContains(t, res.err, "read config")
}

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		ref     string
		want    domain.TableIdentifier
		wantErr bool
	}{
		{ref: "users", want: domain.TableIdentifier{Namespace: domain.NamespacePath{}, Name: "users"}},
		{ref: "default.users", want: domain.TableIdentifier{Namespace: domain.NamespacePath{}, Name: "users"}},
		{ref: "sales.orders", want: domain.TableIdentifier{Namespace: domain.NamespacePath{"sales"}, Name: "orders"}},
		{ref: "a.b.c", want: domain.TableIdentifier{Namespace: domain.NamespacePath{"a", "b"}, Name: "c"}},
		{ref: `a\.b.c`, want: domain.TableIdentifier{Namespace: domain.NamespacePath{"a.b"}, Name: "c"}},
		{ref: "default", wantErr: true},
		{ref: "sales.", wantErr: true},
		{ref: `sales\`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := parseTableRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "NULL", formatCell(nil))
	assert.Equal(t, "x", formatCell("x"))
	assert.Equal(t, "1.5", formatCell(1.5))
	assert.Equal(t, `{"k":"v"}`, formatCell(map[string]any{"k": "v"}))
	assert.Equal(t, `[1,2]`, formatCell([]any{1, 2}))
}
