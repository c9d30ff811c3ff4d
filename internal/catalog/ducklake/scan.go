package ducklake

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/storage"
)

const scanBatchSize = 64 * 1024

// scanFiles reads data files in order until limit rows are collected (all
// rows when limit <= 0). Delete files are not applied.
func scanFiles(ctx context.Context, store storage.Store, files []dataFile, columns []domain.ColumnDescriptor, limit int64) (*rowbatch.Batch, error) {
	if len(files) == 0 {
		return rowbatch.Empty(arrowSchema(columns)), nil
	}

	var (
		schema  *arrow.Schema
		records []arrow.Record
		rows    int64
	)
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for _, f := range files {
		if limit > 0 && rows >= limit {
			break
		}
		remaining := int64(0)
		if limit > 0 {
			remaining = limit - rows
		}
		recs, fileSchema, err := readParquet(ctx, store, f.path, remaining)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			schema = fileSchema
		}
		for _, rec := range recs {
			aligned, err := alignRecord(schema, rec)
			rec.Release()
			if err != nil {
				return nil, fmt.Errorf("data file %s: %w", f.path, err)
			}
			records = append(records, aligned)
			rows += aligned.NumRows()
		}
	}
	if schema == nil {
		return rowbatch.Empty(arrowSchema(columns)), nil
	}
	return rowbatch.New(schema, records)
}

// readParquet returns up to limit rows of one Parquet file (all when 0).
func readParquet(ctx context.Context, store storage.Store, path string, limit int64) ([]arrow.Record, *arrow.Schema, error) {
	f, err := store.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	pf, err := file.NewParquetReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet footer %s: %w", path, err)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: scanBatchSize}, memory.DefaultAllocator)
	if err != nil {
		return nil, nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	defer rr.Release()

	var out []arrow.Record
	var rows int64
	for rr.Next() {
		rec := rr.Record()
		if limit > 0 && rows+rec.NumRows() > limit {
			out = append(out, rec.NewSlice(0, limit-rows))
			rows = limit
			break
		}
		rec.Retain()
		out = append(out, rec)
		rows += rec.NumRows()
		if limit > 0 && rows >= limit {
			break
		}
	}
	if err := rr.Err(); err != nil {
		for _, rec := range out {
			rec.Release()
		}
		return nil, nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return out, rr.Schema(), nil
}

// alignRecord relabels rec with schema when the two differ only in field
// metadata, which Parquet writers set per file.
func alignRecord(schema *arrow.Schema, rec arrow.Record) (arrow.Record, error) {
	if rec.Schema().Equal(schema) {
		rec.Retain()
		return rec, nil
	}
	if rec.Schema().NumFields() != schema.NumFields() {
		return nil, fmt.Errorf("has %d columns, expected %d", rec.Schema().NumFields(), schema.NumFields())
	}
	for i, f := range schema.Fields() {
		got := rec.Schema().Field(i)
		if got.Name != f.Name || !arrow.TypeEqual(got.Type, f.Type) {
			return nil, fmt.Errorf("column %d is %s %s, expected %s %s", i, got.Name, got.Type, f.Name, f.Type)
		}
	}
	return array.NewRecord(schema, rec.Columns(), rec.NumRows()), nil
}

var decimalType = regexp.MustCompile(`^decimal\((\d+),\s*(\d+)\)$`)

// arrowSchema maps DuckLake column types for tables without data files.
func arrowSchema(columns []domain.ColumnDescriptor) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Type), Nullable: !col.Required}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(name string) arrow.DataType {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "uint8":
		return arrow.PrimitiveTypes.Uint8
	case "uint16":
		return arrow.PrimitiveTypes.Uint16
	case "uint32":
		return arrow.PrimitiveTypes.Uint32
	case "uint64":
		return arrow.PrimitiveTypes.Uint64
	case "time":
		return arrow.FixedWidthTypes.Time64us
	}
	if m := decimalType.FindStringSubmatch(n); m != nil {
		var p, s int32
		_, _ = fmt.Sscanf(m[1]+" "+m[2], "%d %d", &p, &s)
		return &arrow.Decimal128Type{Precision: p, Scale: s}
	}
	if dt, err := rowbatch.ParseType(n); err == nil {
		return dt
	}
	// uuid, json, interval and nested types surface as text.
	return arrow.BinaryTypes.String
}
