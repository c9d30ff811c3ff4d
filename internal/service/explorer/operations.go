package explorer

import (
	"context"
	"time"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/service/executor"
	"lake-explorer/internal/service/query"
	"lake-explorer/internal/sqlrewrite"
)

// Preview returns the first limit rows of the table. The limit defaults to
// executor.DefaultPreviewLimit and is capped at the configured maximum.
func (s *Service) Preview(ctx context.Context, id domain.TableIdentifier, limit int) (domain.TabularResult, error) {
	limit = clamp(limit, executor.DefaultPreviewLimit, s.maxPreview)

	tbl, err := s.catalog.LoadTable(ctx, id)
	if err != nil {
		return domain.TabularResult{}, err
	}
	batch, err := scan(ctx, tbl, int64(limit))
	if err != nil {
		return domain.TabularResult{}, err
	}
	defer batch.Release()

	if s.primaryExec != nil {
		res, err := s.primaryExec.Preview(ctx, batch, limit)
		if err == nil || !isEngineUnavailable(err) {
			return res, err
		}
		s.fallback(id, "preview", s.primaryExec.Engine(), s.fallbackExec.Engine(), err)
	}
	return s.fallbackExec.Preview(ctx, batch, limit)
}

// ExecuteQuery runs read-only sql against the table. The limit defaults to
// query.DefaultLimit and is capped at the configured maximum. Invalid or
// failing SQL is reported in the outcome; the error return is reserved for
// lookup, scan and engine failures.
func (s *Service) ExecuteQuery(ctx context.Context, id domain.TableIdentifier, sql string, limit int) (domain.QueryOutcome, error) {
	limit = clamp(limit, query.DefaultLimit, s.maxQuery)

	if err := sqlrewrite.ValidateReadOnly(sql); err != nil {
		return domain.QueryOutcome{Query: sql, Error: err.Error(), Engine: s.primaryQuery.Engine()}, nil
	}

	tbl, err := s.catalog.LoadTable(ctx, id)
	if err != nil {
		return domain.QueryOutcome{}, err
	}
	batch, err := scan(ctx, tbl, 0)
	if err != nil {
		return domain.QueryOutcome{}, err
	}
	defer batch.Release()

	start := time.Now()
	bridges := []*query.Bridge{s.primaryQuery, s.fallbackQuery}
	var lastErr error
	for i, b := range bridges {
		if !b.Available() {
			continue
		}
		out, err := b.Run(ctx, id, batch, sql, limit)
		if err == nil {
			s.logger.Debug("query executed", "table", id.String(), "engine", out.Engine,
				"success", out.Success, "duration", time.Since(start))
			return out, nil
		}
		if !isEngineUnavailable(err) {
			return domain.QueryOutcome{}, err
		}
		lastErr = err
		if i+1 < len(bridges) {
			s.fallback(id, "query", b.Engine(), bridges[i+1].Engine(), err)
		}
	}
	if lastErr == nil {
		lastErr = domain.ErrEngineUnavailable("sql", nil, "no query engine configured")
	}
	return domain.QueryOutcome{}, lastErr
}

// Statistics summarises the table. The primary engine computes exact
// statistics over all rows; the fallback samples executor.SampleRows rows.
func (s *Service) Statistics(ctx context.Context, id domain.TableIdentifier) (domain.TableStatistics, error) {
	tbl, err := s.catalog.LoadTable(ctx, id)
	if err != nil {
		return domain.TableStatistics{}, err
	}

	if s.primaryExec == nil {
		batch, err := scan(ctx, tbl, executor.SampleRows)
		if err != nil {
			return domain.TableStatistics{}, err
		}
		defer batch.Release()
		return s.fallbackExec.Statistics(ctx, batch)
	}

	batch, err := scan(ctx, tbl, 0)
	if err != nil {
		return domain.TableStatistics{}, err
	}
	defer batch.Release()

	stats, err := s.primaryExec.Statistics(ctx, batch)
	if err == nil || !isEngineUnavailable(err) {
		return stats, err
	}
	s.fallback(id, "statistics", s.primaryExec.Engine(), s.fallbackExec.Engine(), err)
	return s.fallbackExec.Statistics(ctx, batch)
}

func (s *Service) fallback(id domain.TableIdentifier, op, from, to string, err error) {
	s.logger.Warn("engine unavailable, using fallback",
		"table", id.String(), "operation", op, "engine", from, "fallback", to, "error", err)
}

// clamp returns def for n <= 0 and caps n at ceiling.
func clamp(n, def, ceiling int) int {
	if n <= 0 {
		n = def
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}
