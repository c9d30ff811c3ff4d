// Package ducklake reads tables from a DuckLake catalog: a SQLite metastore
// describing schemas, tables, columns and Parquet data files.
package ducklake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"lake-explorer/internal/db"
	"lake-explorer/internal/domain"
	"lake-explorer/internal/storage"
)

// CatalogType is reported in CatalogInfo.
const CatalogType = "ducklake"

// Schema names that map to the default (empty) namespace.
const defaultSchema = "default"

// Options configures a DuckLake catalog.
type Options struct {
	MetastorePath string
	// DataPath overrides the data_path stored in ducklake_metadata.
	DataPath string
	Store    storage.Store
	Logger   *slog.Logger
}

// Catalog is a read-only view of the metastore at its latest snapshot.
type Catalog struct {
	db       *sql.DB
	path     string
	dataPath string
	store    storage.Store
	logger   *slog.Logger

	// Tables that only newer DuckLake versions create.
	hasSnapshots  bool
	hasTags       bool
	hasTableStats bool
}

var _ domain.Catalog = (*Catalog)(nil)

// Open opens the metastore read-only.
func Open(ctx context.Context, opts Options) (*Catalog, error) {
	if opts.MetastorePath == "" {
		return nil, domain.ErrValidation("ducklake metastore path is required")
	}
	if opts.Store == nil {
		opts.Store = storage.Local{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conn, err := db.OpenSQLite(opts.MetastorePath, "read", 0)
	if err != nil {
		return nil, fmt.Errorf("open ducklake metastore: %w", err)
	}
	c := &Catalog{
		db:     conn,
		path:   opts.MetastorePath,
		store:  opts.Store,
		logger: opts.Logger.With("component", "ducklake"),
	}

	present, err := c.presentTables(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	for _, required := range []string{"ducklake_schema", "ducklake_table", "ducklake_column", "ducklake_data_file"} {
		if !present[required] {
			_ = conn.Close()
			return nil, fmt.Errorf("%s is not a DuckLake metastore: missing %s", opts.MetastorePath, required)
		}
	}
	c.hasSnapshots = present["ducklake_snapshot"]
	c.hasTags = present["ducklake_tag"]
	c.hasTableStats = present["ducklake_table_stats"]

	c.dataPath = opts.DataPath
	if c.dataPath == "" && present["ducklake_metadata"] {
		err := conn.QueryRowContext(ctx,
			`SELECT value FROM ducklake_metadata WHERE key = 'data_path'`).Scan(&c.dataPath)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			_ = conn.Close()
			return nil, fmt.Errorf("read data_path from ducklake_metadata: %w", err)
		}
	}
	c.logger.Info("ducklake catalog opened", "metastore", opts.MetastorePath, "data_path", c.dataPath)
	return c, nil
}

func (c *Catalog) presentTables(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'ducklake_%'`)
	if err != nil {
		return nil, fmt.Errorf("inspect metastore: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

// Close closes the metastore connection.
func (c *Catalog) Close() error { return c.db.Close() }

// Info describes the catalog.
func (c *Catalog) Info() domain.CatalogInfo {
	return domain.CatalogInfo{Type: CatalogType, Location: c.path, DataPath: c.dataPath}
}

// ListNamespaces returns one namespace per active DuckLake schema.
func (c *Catalog) ListNamespaces(ctx context.Context) ([]domain.NamespacePath, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT schema_name FROM ducklake_schema WHERE end_snapshot IS NULL ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.NamespacePath{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, namespaceOf(name))
	}
	return out, rows.Err()
}

// ListTables returns the active tables of a schema.
func (c *Catalog) ListTables(ctx context.Context, ns domain.NamespacePath) ([]domain.TableIdentifier, error) {
	sc, err := c.lookupSchema(ctx, ns)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT table_name FROM ducklake_table WHERE schema_id = ? AND end_snapshot IS NULL ORDER BY table_name`,
		sc.id)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.TableIdentifier{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, domain.TableIdentifier{Namespace: ns, Name: name})
	}
	return out, rows.Err()
}

// LoadTable reads the table's columns and data files at the current snapshot.
func (c *Catalog) LoadTable(ctx context.Context, id domain.TableIdentifier) (domain.Table, error) {
	sc, err := c.lookupSchema(ctx, id.Namespace)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrTableNotFound(id)
		}
		return nil, err
	}

	t := &table{cat: c, id: id}
	var tablePath sql.NullString
	var tableRelative sql.NullInt64
	err = c.db.QueryRowContext(ctx,
		`SELECT table_id, COALESCE(table_uuid, ''), COALESCE(begin_snapshot, 0), path, path_is_relative
		 FROM ducklake_table WHERE schema_id = ? AND table_name = ? AND end_snapshot IS NULL`,
		sc.id, id.Name).Scan(&t.tableID, &t.uuid, &t.beginSnapshot, &tablePath, &tableRelative)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTableNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", id, err)
	}

	t.location = resolvePath(sc.location, tablePath, tableRelative)
	if t.columns, err = c.loadColumns(ctx, t.tableID); err != nil {
		return nil, err
	}
	if t.files, err = c.loadDataFiles(ctx, t.tableID, t.location); err != nil {
		return nil, err
	}
	if t.properties, err = c.loadTags(ctx, t.tableID); err != nil {
		return nil, err
	}
	return t, nil
}

type schemaRow struct {
	id       int64
	location string
}

func (c *Catalog) lookupSchema(ctx context.Context, ns domain.NamespacePath) (schemaRow, error) {
	name, ok := schemaNameOf(ns)
	if !ok {
		return schemaRow{}, domain.ErrNotFound("namespace %q not found", ns.String())
	}
	var sc schemaRow
	var path sql.NullString
	var relative sql.NullInt64
	err := c.db.QueryRowContext(ctx,
		`SELECT schema_id, path, path_is_relative FROM ducklake_schema WHERE schema_name = ? AND end_snapshot IS NULL`,
		name).Scan(&sc.id, &path, &relative)
	if errors.Is(err, sql.ErrNoRows) {
		return schemaRow{}, domain.ErrNotFound("namespace %q not found", ns.String())
	}
	if err != nil {
		return schemaRow{}, fmt.Errorf("lookup schema %q: %w", name, err)
	}
	sc.location = resolvePath(c.dataPath, path, relative)
	return sc, nil
}

func (c *Catalog) loadColumns(ctx context.Context, tableID int64) ([]domain.ColumnDescriptor, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT column_id, column_name, column_type, COALESCE(nulls_allowed, 1)
		 FROM ducklake_column
		 WHERE table_id = ? AND end_snapshot IS NULL AND parent_column IS NULL
		 ORDER BY COALESCE(column_order, column_id), column_id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("load columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols := []domain.ColumnDescriptor{}
	for rows.Next() {
		var col domain.ColumnDescriptor
		var nullsAllowed int64
		if err := rows.Scan(&col.ID, &col.Name, &col.Type, &nullsAllowed); err != nil {
			return nil, err
		}
		col.Required = nullsAllowed == 0
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

type dataFile struct {
	path        string
	recordCount int64
	sizeBytes   int64
}

func (c *Catalog) loadDataFiles(ctx context.Context, tableID int64, tableLocation string) ([]dataFile, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT path, COALESCE(path_is_relative, 0), COALESCE(record_count, 0), COALESCE(file_size_bytes, 0)
		 FROM ducklake_data_file
		 WHERE table_id = ? AND end_snapshot IS NULL
		 ORDER BY COALESCE(file_order, data_file_id), data_file_id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("query ducklake_data_file: %w", err)
	}
	defer func() { _ = rows.Close() }()

	files := []dataFile{}
	for rows.Next() {
		var f dataFile
		var relative int64
		if err := rows.Scan(&f.path, &relative, &f.recordCount, &f.sizeBytes); err != nil {
			return nil, err
		}
		if relative != 0 {
			f.path = storage.Join(tableLocation, f.path)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (c *Catalog) loadTags(ctx context.Context, tableID int64) (map[string]string, error) {
	props := map[string]string{}
	if !c.hasTags {
		return props, nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT key, value FROM ducklake_tag WHERE object_id = ? AND end_snapshot IS NULL`, tableID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		props[k] = v.String
	}
	return props, rows.Err()
}

// resolvePath applies DuckLake's path rules: a relative path is appended to
// its parent, an absent path inherits the parent.
func resolvePath(parent string, path sql.NullString, relative sql.NullInt64) string {
	if !path.Valid || path.String == "" {
		return parent
	}
	if relative.Valid && relative.Int64 != 0 {
		return storage.Join(parent, path.String)
	}
	return path.String
}

func namespaceOf(schema string) domain.NamespacePath {
	if schema == defaultSchema {
		return domain.NamespacePath{}
	}
	return domain.NamespacePath{schema}
}

// DuckLake schemas are flat, so only single-segment namespaces resolve.
func schemaNameOf(ns domain.NamespacePath) (string, bool) {
	switch len(ns) {
	case 0:
		return defaultSchema, true
	case 1:
		return ns[0], true
	default:
		return "", false
	}
}
