package domain

import (
	"encoding/json"
	"math"
)

// Engine identifiers reported in result envelopes.
const (
	EngineDuckDB = "duckdb"
	EngineSQLite = "sqlite"
	EngineArrow  = "arrow"
)

// TabularResult is a formatted, JSON-safe table of values.
type TabularResult struct {
	Columns  []string          `json:"columns"`
	Data     [][]any           `json:"data"`
	DTypes   map[string]string `json:"dtypes"`
	RowCount int               `json:"row_count"`
	Limit    int               `json:"preview_limit"`
	Engine   string            `json:"engine"`
}

// QueryOutcome is the result envelope of an ad-hoc query. Execution failures
// are reported through Success=false and Error rather than as Go errors.
type QueryOutcome struct {
	Query          string         `json:"query"`
	ProcessedQuery string         `json:"processed_query,omitempty"`
	Result         *TabularResult `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	Success        bool           `json:"success"`
	Engine         string         `json:"engine"`
}

// ColumnStatistics summarises one column. When the per-column computation
// failed only Error is set.
type ColumnStatistics struct {
	Count          int64   `json:"count"`
	DistinctCount  int64   `json:"distinct_count"`
	NullCount      int64   `json:"null_count"`
	NullPercentage float64 `json:"null_percentage"`
	Error          string  `json:"error,omitempty"`
}

// MarshalJSON emits only the error for a failed column.
func (c ColumnStatistics) MarshalJSON() ([]byte, error) {
	if c.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{c.Error})
	}
	type plain ColumnStatistics
	return json.Marshal(plain(c))
}

// NewColumnStatistics derives the null percentage from the raw counts.
func NewColumnStatistics(count, distinct, nulls int64) ColumnStatistics {
	return ColumnStatistics{
		Count:          count,
		DistinctCount:  distinct,
		NullCount:      nulls,
		NullPercentage: NullPercentage(nulls, count),
	}
}

// NullPercentage returns nulls/count*100 rounded to two decimals, or 0 for
// an empty column.
func NullPercentage(nulls, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(nulls)/float64(count)*100*100) / 100
}

// TableStatistics summarises a table.
type TableStatistics struct {
	TotalRows        int64                       `json:"total_rows"`
	DistinctRows     int64                       `json:"distinct_rows"`
	ColumnStatistics map[string]ColumnStatistics `json:"column_statistics"`
	Engine           string                      `json:"engine"`
	Note             string                      `json:"note,omitempty"`
}
