package ducklake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
)

// DuckLake tables carry no format version of their own.
const formatVersion = 1

type table struct {
	cat           *Catalog
	id            domain.TableIdentifier
	tableID       int64
	uuid          string
	beginSnapshot int64
	location      string
	columns       []domain.ColumnDescriptor
	files         []dataFile
	properties    map[string]string
}

var _ domain.Table = (*table)(nil)

func (t *table) Identifier() domain.TableIdentifier { return t.id }
func (t *table) Location() string                   { return t.location }

func (t *table) Schema() domain.TableSchema {
	fields := make([]domain.ColumnDescriptor, len(t.columns))
	copy(fields, t.columns)
	return domain.TableSchema{SchemaID: t.tableID, Fields: fields}
}

func (t *table) Properties() map[string]string {
	out := make(map[string]string, len(t.properties))
	for k, v := range t.properties {
		out[k] = v
	}
	return out
}

// Metadata reports snapshots, data files and record counts. Partitioning is
// not read from DuckLake and is always empty.
func (t *table) Metadata(ctx context.Context) (domain.TableMetadata, error) {
	meta := domain.TableMetadata{
		Location:      t.location,
		Schema:        t.Schema(),
		Properties:    t.Properties(),
		Snapshots:     []domain.SnapshotInfo{},
		FormatVersion: formatVersion,
		TableUUID:     t.uuid,
		Partitions:    []domain.PartitionField{},
		DataFileCount: int64(len(t.files)),
	}

	if t.cat.hasSnapshots {
		snaps, err := t.snapshots(ctx)
		if err != nil {
			return domain.TableMetadata{}, err
		}
		meta.Snapshots = snaps
		if n := len(snaps); n > 0 {
			current := snaps[n-1].SnapshotID
			meta.CurrentSnapshotID = &current
		}
	}

	count, err := t.recordCount(ctx)
	if err != nil {
		return domain.TableMetadata{}, err
	}
	meta.RecordCount = count
	return meta, nil
}

func (t *table) snapshots(ctx context.Context) ([]domain.SnapshotInfo, error) {
	rows, err := t.cat.db.QueryContext(ctx,
		`SELECT snapshot_id, snapshot_time FROM ducklake_snapshot WHERE snapshot_id >= ? ORDER BY snapshot_id`,
		t.beginSnapshot)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.SnapshotInfo{}
	for rows.Next() {
		var s domain.SnapshotInfo
		var ts sql.NullString
		if err := rows.Scan(&s.SnapshotID, &ts); err != nil {
			return nil, err
		}
		s.Timestamp = parseSnapshotTime(ts.String)
		out = append(out, s)
	}
	return out, rows.Err()
}

// recordCount prefers ducklake_table_stats and falls back to summing the
// active data files.
func (t *table) recordCount(ctx context.Context) (*int64, error) {
	if t.cat.hasTableStats {
		var n sql.NullInt64
		err := t.cat.db.QueryRowContext(ctx,
			`SELECT record_count FROM ducklake_table_stats WHERE table_id = ?`, t.tableID).Scan(&n)
		switch {
		case err == nil && n.Valid:
			return &n.Int64, nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("read table stats: %w", err)
		}
	}
	var total int64
	for _, f := range t.files {
		total += f.recordCount
	}
	return &total, nil
}

func (t *table) Scan(ctx context.Context, limit int64) (*rowbatch.Batch, error) {
	return scanFiles(ctx, t.cat.store, t.files, t.columns, limit)
}

// DuckDB stores snapshot_time as text in SQLite metastores.
func parseSnapshotTime(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05.999999",
		time.RFC3339Nano,
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
