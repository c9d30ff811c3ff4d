package resultfmt

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/rowbatch"
)

type status int

type label struct{ s string }

func (l label) String() string { return "label:" + l.s }

func TestCell(t *testing.T) {
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"neg inf float32", float32(math.Inf(-1)), nil},
		{"float", 1.5, 1.5},
		{"int", 7, int64(7)},
		{"int32", int32(-3), int64(-3)},
		{"uint64 small", uint64(9), int64(9)},
		{"uint64 huge", uint64(math.MaxUint64), "18446744073709551615"},
		{"bool", true, true},
		{"string", "x", "x"},
		{"time", when, "2024-03-01T12:30:00Z"},
		{"utf8 bytes", []byte("abc"), "abc"},
		{"binary bytes", []byte{0xff, 0x00}, "/wA="},
		{"big int", big.NewInt(42), int64(42)},
		{"huge big int", new(big.Int).Lsh(big.NewInt(1), 100), "1267650600228229401496703205376"},
		{"duckdb decimal", duckdb.Decimal{Width: 5, Scale: 2, Value: big.NewInt(12345)}, 123.45},
		{"duckdb interval", duckdb.Interval{Months: 1, Days: 2, Micros: 3}, map[string]any{"months": int64(1), "days": int64(2), "micros": int64(3)}},
		{"named int", status(4), int64(4)},
		{"stringer", label{"a"}, "label:a"},
		{"list", []any{1, nil, math.NaN()}, []any{int64(1), nil, nil}},
		{"typed list", []int32{1, 2}, []any{int64(1), int64(2)}},
		{"struct", map[string]any{"a": when}, map[string]any{"a": "2024-03-01T12:30:00Z"}},
		{"map any keys", map[any]any{1: "x"}, map[string]any{"1": "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Cell(tc.in)
			if f, ok := tc.want.(float64); ok {
				require.IsType(t, float64(0), got)
				assert.InDelta(t, f, got, 1e-9)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCell_ArrowTypedValues(t *testing.T) {
	dec := rowbatch.TypedValue{Type: &arrow.Decimal128Type{Precision: 10, Scale: 1}, Value: decimal128.FromI64(15)}
	assert.InDelta(t, 1.5, Cell(dec), 1e-9)

	tod := rowbatch.TypedValue{Type: arrow.FixedWidthTypes.Time64us, Value: arrow.Time64(3_600_000_000)}
	assert.Equal(t, "01:00:00.000000", Cell(tod))
}

func TestFormat(t *testing.T) {
	rows := [][]any{{int32(1), "a"}, {int64(2), nil}}
	res := Format([]string{"id", "name"}, []string{"INTEGER", "VARCHAR"}, rows, 10, "duckdb")

	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, map[string]string{"id": "INTEGER", "name": "VARCHAR"}, res.DTypes)
	assert.Equal(t, 2, res.RowCount)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, "duckdb", res.Engine)
	assert.Equal(t, [][]any{{int64(1), "a"}, {int64(2), nil}}, res.Data)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","name"],"data":[[1,"a"],[2,null]],"dtypes":{"id":"INTEGER","name":"VARCHAR"},"row_count":2,"preview_limit":10,"engine":"duckdb"}`, string(b))
}

func TestFormat_EmptyRowsSerialiseAsArray(t *testing.T) {
	res := Format([]string{"id"}, nil, nil, 5, "arrow")
	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data":[]`)
	assert.Empty(t, res.DTypes)
}

func TestFormat_RowWidthPreserved(t *testing.T) {
	rows := [][]any{{1, 2, 3}, {nil, nil, nil}}
	res := Format([]string{"a", "b", "c"}, nil, rows, 0, "sqlite")
	for _, row := range res.Data {
		assert.Len(t, row, len(res.Columns))
	}
}
