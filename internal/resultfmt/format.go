// Package resultfmt turns engine results into JSON-safe tables.
package resultfmt

import (
	"database/sql/driver"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/duckdb/duckdb-go/v2"

	"lake-explorer/internal/domain"
)

// maxDepth bounds recursion into nested values.
const maxDepth = 32

// Format builds a TabularResult. types holds the producing engine's type
// name per column and may be shorter than columns. Rows are formatted in
// place.
func Format(columns, types []string, rows [][]any, limit int, engine string) domain.TabularResult {
	dtypes := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(types) {
			dtypes[col] = types[i]
		}
	}
	for _, row := range rows {
		for j := range row {
			row[j] = Cell(row[j])
		}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return domain.TabularResult{
		Columns:  columns,
		Data:     rows,
		DTypes:   dtypes,
		RowCount: len(rows),
		Limit:    limit,
		Engine:   engine,
	}
}

// nativeValuer is implemented by boxed scalars that expose a plain value,
// such as rowbatch.TypedValue.
type nativeValuer interface {
	Native() any
}

// float64er is implemented by decimal wrappers such as duckdb.Decimal.
type float64er interface {
	Float64() float64
}

// Cell converts one value to a JSON primitive (or a list/object of them).
// Nulls, NaN and infinities become nil; times become RFC 3339 text.
func Cell(v any) any {
	return cell(v, 0)
}

func cell(v any, depth int) any {
	if depth > maxDepth {
		return fmt.Sprint(v)
	}
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string, int64:
		return val
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return new(big.Int).SetUint64(val).String()
		}
		return int64(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case time.Duration:
		return val.String()
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return base64.StdEncoding.EncodeToString(val)
	case *big.Int:
		if val == nil {
			return nil
		}
		if val.IsInt64() {
			return val.Int64()
		}
		return val.String()
	case duckdb.Interval:
		return map[string]any{"months": int64(val.Months), "days": int64(val.Days), "micros": val.Micros}
	case nativeValuer:
		return cell(val.Native(), depth+1)
	case float64er:
		return finite(val.Float64())
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return nil
		}
		return cell(inner, depth+1)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cell(item, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cell(item, depth+1)
		}
		return out
	case fmt.Stringer:
		return val.String()
	}
	return reflected(reflect.ValueOf(v), depth)
}

// reflected handles remaining kinds: named scalar types, typed slices and
// maps with non-string keys.
func reflected(rv reflect.Value, depth int) any {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cell(rv.Uint(), depth+1)
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return cell(rv.Elem().Interface(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = cell(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			out[fmt.Sprint(cell(k.Interface(), depth+1))] = cell(rv.MapIndex(k).Interface(), depth+1)
		}
		return out
	default:
		return fmt.Sprint(rv.Interface())
	}
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
