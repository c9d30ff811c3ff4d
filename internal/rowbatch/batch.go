// Package rowbatch holds a table's rows as in-memory Arrow record batches.
package rowbatch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
)

// Batch is an engine-agnostic columnar row batch: one Arrow schema and any
// number of records sharing it. A Batch owns a reference on each record.
type Batch struct {
	schema  *arrow.Schema
	records []arrow.Record
	rows    int64
}

// New takes a reference on every record. Records must share schema.
func New(schema *arrow.Schema, records []arrow.Record) (*Batch, error) {
	b := &Batch{schema: schema}
	for i, rec := range records {
		if !rec.Schema().Equal(schema) {
			return nil, fmt.Errorf("record %d schema %s does not match %s", i, rec.Schema(), schema)
		}
		rec.Retain()
		b.records = append(b.records, rec)
		b.rows += rec.NumRows()
	}
	return b, nil
}

// FromTable reads every chunk of an Arrow table into a Batch.
func FromTable(tbl arrow.Table) (*Batch, error) {
	reader := array.NewTableReader(tbl, 0)
	defer reader.Release()

	// The reader releases each record when it advances.
	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for reader.Next() {
		rec := reader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return New(tbl.Schema(), records)
}

// Empty returns a zero-row batch with the given schema.
func Empty(schema *arrow.Schema) *Batch {
	return &Batch{schema: schema}
}

// Schema returns the Arrow schema.
func (b *Batch) Schema() *arrow.Schema { return b.schema }

// Records returns the underlying records. They stay owned by the batch.
func (b *Batch) Records() []arrow.Record { return b.records }

// NumRows returns the total row count.
func (b *Batch) NumRows() int64 { return b.rows }

// NumCols returns the column count.
func (b *Batch) NumCols() int { return b.schema.NumFields() }

// ColumnNames returns the column names in schema order.
func (b *Batch) ColumnNames() []string {
	names := make([]string, b.schema.NumFields())
	for i, f := range b.schema.Fields() {
		names[i] = f.Name
	}
	return names
}

// Head returns a batch holding at most n leading rows. The original batch is
// unchanged; the caller releases both.
func (b *Batch) Head(n int64) *Batch {
	out := &Batch{schema: b.schema}
	for _, rec := range b.records {
		if n <= 0 {
			break
		}
		take := min(rec.NumRows(), n)
		out.records = append(out.records, rec.NewSlice(0, take))
		out.rows += take
		n -= take
	}
	return out
}

// Each calls fn for every row with its values in column order. The slice is
// reused between calls. Iteration stops when fn returns false.
func (b *Batch) Each(fn func(row []any) bool) {
	row := make([]any, b.NumCols())
	for _, rec := range b.records {
		for r := 0; r < int(rec.NumRows()); r++ {
			for c := 0; c < int(rec.NumCols()); c++ {
				row[c] = Value(rec.Column(c), r)
			}
			if !fn(row) {
				return
			}
		}
	}
}

// Rows materialises every row.
func (b *Batch) Rows() [][]any {
	out := make([][]any, 0, b.rows)
	b.Each(func(row []any) bool {
		out = append(out, append([]any(nil), row...))
		return true
	})
	return out
}

// Release drops the batch's record references.
func (b *Batch) Release() {
	for _, rec := range b.records {
		rec.Release()
	}
	b.records = nil
	b.rows = 0
}

// Value returns the cell at index i as a Go value. Nulls are nil, dates and
// timestamps become time.Time, lists become []any and structs map[string]any.
// Decimals and times of day are wrapped in TypedValue.
func Value(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float16:
		return float64(a.Value(i).Float32())
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...)
	case *array.LargeBinary:
		return append([]byte(nil), a.Value(i)...)
	case *array.FixedSizeBinary:
		return append([]byte(nil), a.Value(i)...)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Time32:
		return TypedValue{Type: a.DataType(), Value: a.Value(i)}
	case *array.Time64:
		return TypedValue{Type: a.DataType(), Value: a.Value(i)}
	case *array.Decimal128:
		return TypedValue{Type: a.DataType(), Value: a.Value(i)}
	case *array.List:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return listValues(a.ListValues(), start, end)
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		out := make(map[string]any, a.NumField())
		for f := 0; f < a.NumField(); f++ {
			out[st.Field(f).Name] = Value(a.Field(f), i)
		}
		return out
	case *array.Dictionary:
		return Value(a.Dictionary(), a.GetValueIndex(i))
	default:
		return arr.ValueStr(i)
	}
}

func listValues(values arrow.Array, start, end int64) []any {
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, Value(values, int(j)))
	}
	return out
}

// TypedValue is an Arrow scalar that needs its data type to be interpreted.
type TypedValue struct {
	Type  arrow.DataType
	Value any
}

// Native returns the closest plain Go value: float64 for decimals and the
// canonical text form for times of day.
func (v TypedValue) Native() any {
	switch val := v.Value.(type) {
	case decimal128.Num:
		if dt, ok := v.Type.(*arrow.Decimal128Type); ok {
			return val.ToFloat64(dt.Scale)
		}
		return val.ToFloat64(0)
	case arrow.Time32:
		return val.FormattedString(v.Type.(*arrow.Time32Type).Unit)
	case arrow.Time64:
		return val.FormattedString(v.Type.(*arrow.Time64Type).Unit)
	default:
		return v.Value
	}
}

// String implements fmt.Stringer.
func (v TypedValue) String() string { return fmt.Sprint(v.Native()) }
