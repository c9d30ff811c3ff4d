package executor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/resultfmt"
	"lake-explorer/internal/rowbatch"
)

// Arrow computes previews and sampled statistics by iterating the batch in
// process. It needs no engine and never reports EngineUnavailableError.
type Arrow struct{}

var _ Executor = Arrow{}

// Engine returns domain.EngineArrow.
func (Arrow) Engine() string { return domain.EngineArrow }

// Preview returns the first limit rows of batch.
func (Arrow) Preview(ctx context.Context, batch *rowbatch.Batch, limit int) (domain.TabularResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.TabularResult{}, err
	}
	limit = previewLimit(limit)
	head := batch.Head(int64(limit))
	defer head.Release()
	return resultfmt.Format(head.ColumnNames(), arrowTypes(batch), head.Rows(), limit, domain.EngineArrow), nil
}

// Statistics computes statistics over at most SampleRows rows. Count
// includes nulls, matching COUNT(*); distinct counts skip nulls.
func (Arrow) Statistics(ctx context.Context, batch *rowbatch.Batch) (domain.TableStatistics, error) {
	sample := batch.Head(SampleRows)
	defer sample.Release()

	cols := sample.ColumnNames()
	nulls := make([]int64, len(cols))
	distinct := make([]map[any]struct{}, len(cols))
	for i := range distinct {
		distinct[i] = map[any]struct{}{}
	}
	rows := map[string]struct{}{}

	var total int64
	var rowKey strings.Builder
	var err error
	sample.Each(func(row []any) bool {
		if total%1024 == 0 {
			if err = ctx.Err(); err != nil {
				return false
			}
		}
		total++
		rowKey.Reset()
		for i, v := range row {
			k := distinctKey(v)
			if v == nil {
				nulls[i]++
			} else {
				distinct[i][k] = struct{}{}
			}
			fmt.Fprintf(&rowKey, "%T:%v\x1f", k, k)
		}
		rows[rowKey.String()] = struct{}{}
		return true
	})
	if err != nil {
		return domain.TableStatistics{}, err
	}

	stats := domain.TableStatistics{
		TotalRows:        total,
		DistinctRows:     int64(len(rows)),
		ColumnStatistics: make(map[string]domain.ColumnStatistics, len(cols)),
		Engine:           domain.EngineArrow,
		Note:             SampleNote,
	}
	for i, col := range cols {
		stats.ColumnStatistics[col] = domain.NewColumnStatistics(total, int64(len(distinct[i])), nulls[i])
	}
	return stats, nil
}

// distinctKey maps a cell to a comparable value that is equal exactly when
// the engine would treat the cells as equal.
func distinctKey(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return x
	case []byte:
		return "b:" + string(x)
	case time.Time:
		return x.UnixNano()
	case rowbatch.TypedValue:
		return distinctKey(x.Native())
	case []any, map[string]any:
		return fmt.Sprintf("%v", resultfmt.Cell(x))
	default:
		return x
	}
}

func arrowTypes(batch *rowbatch.Batch) []string {
	fields := batch.Schema().Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Type.String()
	}
	return out
}
