package engine

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"lake-explorer/internal/resultfmt"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/sqlrewrite"
)

// column is the engine-side definition of one Arrow field.
type column struct {
	name    string
	sqlType string
	convert func(any) driver.Value
}

// dialect maps Arrow types to engine column types.
type dialect interface {
	columnType(dt arrow.DataType) (string, func(any) driver.Value)
}

func columnsFor(schema *arrow.Schema, d dialect) []column {
	cols := make([]column, schema.NumFields())
	for i, f := range schema.Fields() {
		typ, conv := d.columnType(f.Type)
		cols[i] = column{name: f.Name, sqlType: typ, convert: conv}
	}
	return cols
}

// createTableSQL builds the CREATE TABLE statement for a registered relation.
func createTableSQL(relation string, cols []column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = sqlrewrite.QuoteIdentifier(c.name) + " " + c.sqlType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqlrewrite.QuoteIdentifier(relation), strings.Join(defs, ", "))
}

// rowValues converts one batch row to driver values.
func rowValues(cols []column, row []any, out []driver.Value) {
	for i, v := range row {
		if v == nil {
			out[i] = nil
			continue
		}
		out[i] = cols[i].convert(v)
	}
}

// eachRow walks batch rows as driver values.
func eachRow(batch *rowbatch.Batch, cols []column, fn func([]driver.Value) error) error {
	vals := make([]driver.Value, len(cols))
	var err error
	batch.Each(func(row []any) bool {
		rowValues(cols, row, vals)
		err = fn(vals)
		return err == nil
	})
	return err
}

// duckDialect keeps Arrow type fidelity where DuckDB has a native type.
type duckDialect struct{}

func (duckDialect) columnType(dt arrow.DataType) (string, func(any) driver.Value) {
	switch dt.ID() {
	case arrow.BOOL:
		return "BOOLEAN", passthrough
	case arrow.INT8:
		return "TINYINT", func(v any) driver.Value { return int8(v.(int64)) } //nolint:gosec // value came from an int8 column
	case arrow.INT16:
		return "SMALLINT", func(v any) driver.Value { return int16(v.(int64)) } //nolint:gosec // value came from an int16 column
	case arrow.INT32:
		return "INTEGER", func(v any) driver.Value { return int32(v.(int64)) } //nolint:gosec // value came from an int32 column
	case arrow.INT64:
		return "BIGINT", passthrough
	case arrow.UINT8:
		return "UTINYINT", func(v any) driver.Value { return uint8(v.(int64)) } //nolint:gosec // value came from a uint8 column
	case arrow.UINT16:
		return "USMALLINT", func(v any) driver.Value { return uint16(v.(int64)) } //nolint:gosec // value came from a uint16 column
	case arrow.UINT32:
		return "UINTEGER", func(v any) driver.Value { return uint32(v.(int64)) } //nolint:gosec // value came from a uint32 column
	case arrow.UINT64:
		return "UBIGINT", passthrough
	case arrow.FLOAT16, arrow.FLOAT32:
		return "FLOAT", func(v any) driver.Value { return float32(v.(float64)) }
	case arrow.FLOAT64:
		return "DOUBLE", passthrough
	case arrow.STRING, arrow.LARGE_STRING:
		return "VARCHAR", passthrough
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return "BLOB", passthrough
	case arrow.DATE32, arrow.DATE64:
		return "DATE", passthrough
	case arrow.TIMESTAMP:
		if dt.(*arrow.TimestampType).TimeZone != "" {
			return "TIMESTAMPTZ", passthrough
		}
		return "TIMESTAMP", passthrough
	case arrow.DECIMAL128:
		return "DOUBLE", native
	case arrow.DICTIONARY:
		return duckDialect{}.columnType(dt.(*arrow.DictionaryType).ValueType)
	default:
		// Times of day and nested values are stored as text.
		return "VARCHAR", text
	}
}

// sqliteDialect uses SQLite's storage classes.
type sqliteDialect struct{}

func (sqliteDialect) columnType(dt arrow.DataType) (string, func(any) driver.Value) {
	switch dt.ID() {
	case arrow.BOOL:
		return "BOOLEAN", passthrough
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "INTEGER", passthrough
	case arrow.UINT64:
		return "INTEGER", func(v any) driver.Value { return int64(v.(uint64)) } //nolint:gosec // SQLite has no unsigned 64-bit type
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128:
		return "REAL", native
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return "BLOB", passthrough
	case arrow.DATE32, arrow.DATE64:
		return "DATE", func(v any) driver.Value { return v.(time.Time).UTC().Format(time.DateOnly) }
	case arrow.TIMESTAMP:
		return "TIMESTAMP", func(v any) driver.Value { return v.(time.Time).UTC().Format(time.RFC3339Nano) }
	case arrow.DICTIONARY:
		return sqliteDialect{}.columnType(dt.(*arrow.DictionaryType).ValueType)
	default:
		return "TEXT", text
	}
}

func passthrough(v any) driver.Value { return v }

// native unwraps rowbatch.TypedValue (decimals) to a float.
func native(v any) driver.Value {
	if tv, ok := v.(rowbatch.TypedValue); ok {
		return tv.Native()
	}
	return v
}

// text renders any value as its JSON-safe text form.
func text(v any) driver.Value {
	switch c := resultfmt.Cell(v).(type) {
	case nil:
		return nil
	case string:
		return c
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(b)
	}
}
