package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/resultfmt"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/sqlrewrite"
)

// SQL runs previews and statistics inside an engine session.
type SQL struct {
	pool   *engine.Pool
	logger *slog.Logger
}

var _ Executor = (*SQL)(nil)

// NewSQL creates an executor over pool.
func NewSQL(pool *engine.Pool, logger *slog.Logger) *SQL {
	return &SQL{pool: pool, logger: logger.With("component", "executor", "engine", pool.Name())}
}

// Engine returns the pool's engine identifier.
func (e *SQL) Engine() string { return e.pool.Name() }

// Preview returns the first limit rows.
func (e *SQL) Preview(ctx context.Context, batch *rowbatch.Batch, limit int) (domain.TabularResult, error) {
	limit = previewLimit(limit)
	var out domain.TabularResult
	err := e.withRelation(ctx, batch, func(lease *engine.Lease, relation string) error {
		res, err := lease.Execute(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", sqlrewrite.QuoteIdentifier(relation), limit))
		if err != nil {
			return domain.ErrEngineUnavailable(e.Engine(), err, "preview")
		}
		out = resultfmt.Format(res.Columns, res.Types, res.Rows, limit, lease.Engine())
		return nil
	})
	return out, err
}

// Statistics computes exact statistics over the whole batch. A failing
// column query is recorded on that column only.
func (e *SQL) Statistics(ctx context.Context, batch *rowbatch.Batch) (domain.TableStatistics, error) {
	stats := domain.TableStatistics{
		ColumnStatistics: map[string]domain.ColumnStatistics{},
		Engine:           e.Engine(),
	}
	err := e.withRelation(ctx, batch, func(lease *engine.Lease, relation string) error {
		rel := sqlrewrite.QuoteIdentifier(relation)
		res, err := lease.Execute(ctx, fmt.Sprintf(
			"SELECT COUNT(*) AS row_count, (SELECT COUNT(*) FROM (SELECT DISTINCT * FROM %s) d) AS distinct_rows FROM %s", rel, rel))
		if err != nil {
			return domain.ErrEngineUnavailable(e.Engine(), err, "table statistics")
		}
		counts, err := int64Row(res, 2)
		if err != nil {
			return domain.ErrEngineUnavailable(e.Engine(), err, "table statistics")
		}
		stats.TotalRows, stats.DistinctRows = counts[0], counts[1]

		for _, col := range batch.ColumnNames() {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.ColumnStatistics[col] = e.columnStatistics(ctx, lease, rel, col)
		}
		return nil
	})
	if err != nil {
		return domain.TableStatistics{}, err
	}
	return stats, nil
}

func (e *SQL) columnStatistics(ctx context.Context, lease *engine.Lease, rel, col string) domain.ColumnStatistics {
	qc := sqlrewrite.QuoteIdentifier(col)
	res, err := lease.Execute(ctx, fmt.Sprintf(
		"SELECT COUNT(*) AS count, COUNT(DISTINCT %s) AS distinct_count, COUNT(*) - COUNT(%s) AS null_count FROM %s", qc, qc, rel))
	if err == nil {
		var counts []int64
		if counts, err = int64Row(res, 3); err == nil {
			return domain.NewColumnStatistics(counts[0], counts[1], counts[2])
		}
	}
	e.logger.Warn("column statistics failed", "column", col, "error", err)
	return domain.ColumnStatistics{Error: err.Error()}
}

func (e *SQL) withRelation(ctx context.Context, batch *rowbatch.Batch, fn func(*engine.Lease, string) error) error {
	lease, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	relation := sqlrewrite.TemporaryRelationName("scan")
	return lease.WithRelation(ctx, relation, batch, func() error {
		return fn(lease, relation)
	})
}

// int64Row reads the first row of res as n integers.
func int64Row(res *engine.Result, n int) ([]int64, error) {
	if len(res.Rows) != 1 || len(res.Rows[0]) < n {
		return nil, fmt.Errorf("expected one row of %d values, got %d rows", n, len(res.Rows))
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		v, err := toInt64(res.Rows[0][i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("count %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		return int64(n), nil
	case *big.Int:
		if !n.IsInt64() {
			return 0, fmt.Errorf("count %s overflows int64", n)
		}
		return n.Int64(), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
