// Package memory is an in-process catalog loaded from a YAML or JSON fixture.
// It backs demos and tests that should not depend on a DuckLake metastore.
package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
)

// CatalogType is reported in CatalogInfo.
const CatalogType = "memory"

// Fixture is the on-disk catalog description. JSON fixtures decode through
// the same YAML reader.
type Fixture struct {
	Namespaces []NamespaceFixture `yaml:"namespaces" json:"namespaces"`
}

// NamespaceFixture lists the tables of one namespace. Name uses the dotted
// namespace encoding; "default" is the default namespace.
type NamespaceFixture struct {
	Name   string         `yaml:"name" json:"name"`
	Tables []TableFixture `yaml:"tables" json:"tables"`
}

// TableFixture describes one table and its rows.
type TableFixture struct {
	Name       string            `yaml:"name" json:"name"`
	Location   string            `yaml:"location" json:"location"`
	Properties map[string]string `yaml:"properties" json:"properties"`
	Columns    []ColumnFixture   `yaml:"columns" json:"columns"`
	Rows       [][]any           `yaml:"rows" json:"rows"`
}

// ColumnFixture describes one column.
type ColumnFixture struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Required bool   `yaml:"required" json:"required"`
	Doc      string `yaml:"doc" json:"doc"`
}

// Catalog is a concurrency-safe in-memory catalog.
type Catalog struct {
	location string

	mu         sync.RWMutex
	namespaces map[string]domain.NamespacePath
	tables     map[string]*tableData
	scanErrs   map[string]error
}

var _ domain.Catalog = (*Catalog)(nil)

type tableData struct {
	id         domain.TableIdentifier
	uuid       string
	location   string
	schema     domain.TableSchema
	properties map[string]string
	batch      *rowbatch.Batch
	createdAt  time.Time
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		location:   CatalogType,
		namespaces: map[string]domain.NamespacePath{},
		tables:     map[string]*tableData{},
		scanErrs:   map[string]error{},
	}
}

// Load reads a fixture file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	c, err := FromFixture(f)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	c.location = path
	return c, nil
}

// FromFixture builds a catalog from a decoded fixture.
func FromFixture(f Fixture) (*Catalog, error) {
	c := New()
	for _, nsf := range f.Namespaces {
		ns, err := domain.ParseNamespace(nsf.Name)
		if err != nil {
			return nil, err
		}
		c.CreateNamespace(ns)
		for _, tf := range nsf.Tables {
			cols := make([]domain.ColumnDescriptor, len(tf.Columns))
			for i, cf := range tf.Columns {
				cols[i] = domain.ColumnDescriptor{Name: cf.Name, Type: cf.Type, Required: cf.Required, Doc: cf.Doc}
			}
			id := domain.TableIdentifier{Namespace: ns, Name: tf.Name}
			if err := c.AddTable(id, cols, tf.Rows, TableOptions{Location: tf.Location, Properties: tf.Properties}); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// CreateNamespace registers an empty namespace.
func (c *Catalog) CreateNamespace(ns domain.NamespacePath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[ns.String()] = ns
}

// TableOptions carries optional table attributes.
type TableOptions struct {
	Location   string
	Properties map[string]string
}

// AddTable creates or replaces a table. Column ids are assigned in order
// starting at 1; column types use SQL spelling (BIGINT, VARCHAR, ...).
func (c *Catalog) AddTable(id domain.TableIdentifier, columns []domain.ColumnDescriptor, rows [][]any, opts TableOptions) error {
	if id.Name == "" {
		return domain.ErrValidation("table name is required")
	}
	if len(columns) == 0 {
		return domain.ErrValidation("table %s has no columns", id)
	}

	fields := make([]arrow.Field, len(columns))
	descs := make([]domain.ColumnDescriptor, len(columns))
	for i, col := range columns {
		dt, err := rowbatch.ParseType(col.Type)
		if err != nil {
			return fmt.Errorf("table %s column %q: %w", id, col.Name, err)
		}
		fields[i] = arrow.Field{Name: col.Name, Type: dt, Nullable: !col.Required}
		col.ID = i + 1
		descs[i] = col
	}
	batch, err := rowbatch.FromRows(arrow.NewSchema(fields, nil), rows)
	if err != nil {
		return fmt.Errorf("table %s: %w", id, err)
	}

	location := opts.Location
	if location == "" {
		location = "memory://" + id.QualifiedName()
	}
	props := make(map[string]string, len(opts.Properties))
	for k, v := range opts.Properties {
		props[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	key := id.QualifiedName()
	if old, ok := c.tables[key]; ok {
		old.batch.Release()
	}
	c.namespaces[id.Namespace.String()] = id.Namespace
	c.tables[key] = &tableData{
		id:         id,
		uuid:       uuid.New().String(),
		location:   location,
		schema:     domain.TableSchema{SchemaID: 0, Fields: descs},
		properties: props,
		batch:      batch,
		createdAt:  time.Now().UTC(),
	}
	return nil
}

// FailScans makes every scan of id return err until cleared with a nil err.
func (c *Catalog) FailScans(id domain.TableIdentifier, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.scanErrs, id.QualifiedName())
		return
	}
	c.scanErrs[id.QualifiedName()] = err
}

// ListNamespaces returns namespaces sorted by their text form.
func (c *Catalog) ListNamespaces(_ context.Context) ([]domain.NamespacePath, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.namespaces))
	for k := range c.namespaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.NamespacePath, len(keys))
	for i, k := range keys {
		out[i] = c.namespaces[k]
	}
	return out, nil
}

// ListTables returns the tables of ns sorted by name.
func (c *Catalog) ListTables(_ context.Context, ns domain.NamespacePath) ([]domain.TableIdentifier, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.namespaces[ns.String()]; !ok {
		return nil, domain.ErrNotFound("namespace %q not found", ns.String())
	}
	out := []domain.TableIdentifier{}
	for _, t := range c.tables {
		if t.id.Namespace.Equal(ns) {
			out = append(out, t.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// LoadTable returns a handle on the table.
func (c *Catalog) LoadTable(_ context.Context, id domain.TableIdentifier) (domain.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[id.QualifiedName()]
	if !ok {
		return nil, domain.ErrTableNotFound(id)
	}
	return &table{cat: c, data: t}, nil
}

// Info describes the catalog.
func (c *Catalog) Info() domain.CatalogInfo {
	return domain.CatalogInfo{Type: CatalogType, Location: c.location}
}

// Close releases all table data.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.tables {
		t.batch.Release()
		delete(c.tables, k)
	}
	return nil
}

type table struct {
	cat  *Catalog
	data *tableData
}

func (t *table) Identifier() domain.TableIdentifier { return t.data.id }
func (t *table) Schema() domain.TableSchema         { return t.data.schema }
func (t *table) Location() string                   { return t.data.location }

func (t *table) Properties() map[string]string {
	out := make(map[string]string, len(t.data.properties))
	for k, v := range t.data.properties {
		out[k] = v
	}
	return out
}

func (t *table) Metadata(_ context.Context) (domain.TableMetadata, error) {
	snapshot := int64(1)
	records := t.data.batch.NumRows()
	return domain.TableMetadata{
		Location:          t.data.location,
		Schema:            t.data.schema,
		Properties:        t.Properties(),
		CurrentSnapshotID: &snapshot,
		Snapshots:         []domain.SnapshotInfo{{SnapshotID: snapshot, Timestamp: t.data.createdAt}},
		FormatVersion:     1,
		TableUUID:         t.data.uuid,
		Partitions:        []domain.PartitionField{},
		RecordCount:       &records,
	}, nil
}

func (t *table) Scan(_ context.Context, limit int64) (*rowbatch.Batch, error) {
	t.cat.mu.RLock()
	defer t.cat.mu.RUnlock()
	if err := t.cat.scanErrs[t.data.id.QualifiedName()]; err != nil {
		return nil, err
	}
	// Replaced or closed tables have released their rows.
	if t.cat.tables[t.data.id.QualifiedName()] != t.data {
		return nil, fmt.Errorf("table %s was replaced", t.data.id)
	}
	n := t.data.batch.NumRows()
	if limit > 0 && limit < n {
		n = limit
	}
	return t.data.batch.Head(n), nil
}
