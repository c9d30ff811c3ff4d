package rowbatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FromRows builds a single-record batch from row-major Go values. Supported
// column types are the integer, float, boolean, string, binary, date32 and
// timestamp types.
func FromRows(schema *arrow.Schema, rows [][]any) (*Batch, error) {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	for r, row := range rows {
		if len(row) != schema.NumFields() {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns", r, len(row), schema.NumFields())
		}
		for c, v := range row {
			if err := appendValue(bldr.Field(c), v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, schema.Field(c).Name, err)
			}
		}
	}

	rec := bldr.NewRecord()
	defer rec.Release()
	return New(schema, []arrow.Record{rec})
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int8Builder:
		n, err := toInt64(v)
		fb.Append(int8(n)) //nolint:gosec // fixture values are small
		return err
	case *array.Int16Builder:
		n, err := toInt64(v)
		fb.Append(int16(n)) //nolint:gosec // fixture values are small
		return err
	case *array.Int32Builder:
		n, err := toInt64(v)
		fb.Append(int32(n)) //nolint:gosec // fixture values are small
		return err
	case *array.Int64Builder:
		n, err := toInt64(v)
		fb.Append(n)
		return err
	case *array.Float32Builder:
		f, err := toFloat64(v)
		fb.Append(float32(f))
		return err
	case *array.Float64Builder:
		f, err := toFloat64(v)
		fb.Append(f)
		return err
	case *array.BooleanBuilder:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		fb.Append(bv)
	case *array.StringBuilder:
		fb.Append(fmt.Sprint(v))
	case *array.BinaryBuilder:
		switch bv := v.(type) {
		case []byte:
			fb.Append(bv)
		case string:
			fb.AppendString(bv)
		default:
			return fmt.Errorf("expected bytes, got %T", v)
		}
	case *array.Date32Builder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		fb.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		unit := fb.Type().(*arrow.TimestampType).Unit
		ts, err := arrow.TimestampFromTime(t, unit)
		if err != nil {
			return err
		}
		fb.Append(ts)
	default:
		return fmt.Errorf("unsupported column type %s", b.Type())
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil //nolint:gosec // fixture values are small
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, fmt.Errorf("expected number, got %T", v)
		}
		return float64(i), nil
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", time.DateOnly} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", t)
	default:
		return time.Time{}, fmt.Errorf("expected time, got %T", v)
	}
}

// ParseType maps a type name to an Arrow data type. Names follow the SQL
// spelling used by fixtures and catalogs (e.g. "BIGINT", "VARCHAR", "int64").
func ParseType(name string) (arrow.DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tinyint", "int8":
		return arrow.PrimitiveTypes.Int8, nil
	case "smallint", "int16":
		return arrow.PrimitiveTypes.Int16, nil
	case "int", "integer", "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "bigint", "long", "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "float", "real", "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "double", "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "string", "varchar", "text", "utf8":
		return arrow.BinaryTypes.String, nil
	case "blob", "binary", "bytea":
		return arrow.BinaryTypes.Binary, nil
	case "date", "date32":
		return arrow.FixedWidthTypes.Date32, nil
	case "timestamp", "timestamp_us", "datetime":
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case "timestamptz", "timestamp with time zone":
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", name)
	}
}
