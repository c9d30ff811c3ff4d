// Package query runs ad-hoc SQL against one table's rows inside an embedded
// engine session.
package query

import (
	"context"
	"errors"
	"log/slog"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/resultfmt"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/sqlrewrite"
)

// DefaultLimit is the row cap appended to queries without a LIMIT clause.
const DefaultLimit = 100

// Bridge materialises a table into an engine session and runs user SQL
// against it.
type Bridge struct {
	pool   *engine.Pool
	logger *slog.Logger
}

// NewBridge creates a Bridge. A nil pool makes every run report
// EngineUnavailableError.
func NewBridge(pool *engine.Pool, logger *slog.Logger) *Bridge {
	return &Bridge{pool: pool, logger: logger.With("component", "query")}
}

// Engine returns the engine identifier, or "" without a pool.
func (b *Bridge) Engine() string {
	if b.pool == nil {
		return ""
	}
	return b.pool.Name()
}

// Available reports whether the bridge has an engine.
func (b *Bridge) Available() bool { return b.pool != nil }

// Run registers batch under a temporary relation, rewrites sql to address
// it and executes it. SQL errors are returned in the outcome with
// Success=false; the only Go error returned is EngineUnavailableError.
func (b *Bridge) Run(ctx context.Context, id domain.TableIdentifier, batch *rowbatch.Batch, sql string, limit int) (domain.QueryOutcome, error) {
	if b.pool == nil {
		return domain.QueryOutcome{}, domain.ErrEngineUnavailable("sql", nil, "no engine configured")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	lease, err := b.pool.Acquire(ctx)
	if err != nil {
		return domain.QueryOutcome{}, err
	}
	defer lease.Release()

	relation := sqlrewrite.TemporaryRelationName(id.Name)
	processed := sqlrewrite.Rewrite(sql, id, relation, limit)
	out := domain.QueryOutcome{Query: sql, ProcessedQuery: processed, Engine: lease.Engine()}

	var res *engine.Result
	var execErr error
	err = lease.WithRelation(ctx, relation, batch, func() error {
		res, execErr = lease.Execute(ctx, processed)
		return nil
	})
	if err != nil {
		return domain.QueryOutcome{}, err
	}
	if execErr != nil {
		b.logger.Info("query failed", "table", id.String(), "engine", lease.Engine(), "error", execErr)
		out.Error = queryErrorMessage(ctx, execErr)
		return out, nil
	}

	result := resultfmt.Format(res.Columns, res.Types, res.Rows, limit, lease.Engine())
	out.Result = &result
	out.Success = true
	return out, nil
}

func queryErrorMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "query timed out: " + err.Error()
	}
	return err.Error()
}
