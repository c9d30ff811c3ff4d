package domain

import "time"

// TableIdentifier names a table inside a namespace.
type TableIdentifier struct {
	Namespace NamespacePath
	Name      string
}

// NewTableIdentifier decodes namespace text and pairs it with a table name.
func NewTableIdentifier(namespace, name string) (TableIdentifier, error) {
	ns, err := ParseNamespace(namespace)
	if err != nil {
		return TableIdentifier{}, err
	}
	if name == "" {
		return TableIdentifier{}, ErrValidation("table name is required")
	}
	return TableIdentifier{Namespace: ns, Name: name}, nil
}

// QualifiedName is the namespace text joined to the table name with ".".
// This is the form users write in SQL, e.g. "sales.orders" or "default.users".
func (t TableIdentifier) QualifiedName() string {
	return t.Namespace.String() + "." + t.Name
}

// String returns the qualified name.
func (t TableIdentifier) String() string { return t.QualifiedName() }

// ColumnDescriptor describes one column of a table schema.
type ColumnDescriptor struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Doc      string `json:"doc,omitempty"`
}

// Nullable reports whether the column may hold nulls.
func (c ColumnDescriptor) Nullable() bool { return !c.Required }

// TableSchema is the engine-independent schema of a table.
type TableSchema struct {
	SchemaID int64              `json:"schema_id"`
	Fields   []ColumnDescriptor `json:"fields"`
}

// ColumnNames lists the field names in schema order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SnapshotInfo describes one committed version of a table.
type SnapshotInfo struct {
	SnapshotID int64     `json:"snapshot_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// PartitionField describes one partition column of a table.
type PartitionField struct {
	FieldID   int    `json:"field_id"`
	Name      string `json:"name"`
	Transform string `json:"transform"`
}

// TableMetadata holds catalog-level metadata for a table.
type TableMetadata struct {
	Location          string            `json:"location"`
	Schema            TableSchema       `json:"schema"`
	Properties        map[string]string `json:"properties"`
	CurrentSnapshotID *int64            `json:"current_snapshot_id"`
	Snapshots         []SnapshotInfo    `json:"snapshots"`
	FormatVersion     int               `json:"format_version"`
	TableUUID         string            `json:"table_uuid"`
	Partitions        []PartitionField  `json:"partitions"`
	DataFileCount     int64             `json:"data_file_count"`
	RecordCount       *int64            `json:"record_count"`
}

// TableSearchResult is one match returned by a table search.
type TableSearchResult struct {
	Namespace string `json:"namespace"`
	TableName string `json:"table_name"`
	FullName  string `json:"full_name"`
}

// NamespaceTables groups the table names of one namespace.
type NamespaceTables struct {
	Namespace string   `json:"namespace"`
	Tables    []string `json:"tables"`
}

// CatalogInfo describes where a catalog lives.
type CatalogInfo struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	DataPath string `json:"data_path,omitempty"`
}
