// Package executor computes table previews and statistics. The SQL engine
// executor is the primary path; the Arrow executor works on the row batch
// directly and serves as the fallback.
package executor

import (
	"context"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/rowbatch"
)

// SampleRows caps the rows the fallback path computes statistics over.
const SampleRows = 10000

// SampleNote marks statistics computed from a sample.
const SampleNote = "Statistics based on sample of 10,000 rows"

// DefaultPreviewLimit is used when a preview asks for no rows.
const DefaultPreviewLimit = 10

// Executor runs previews and statistics over an already scanned batch.
// Implementations return identical envelopes apart from Engine, DTypes and
// the sampling note. Engine-level failures are EngineUnavailableError.
type Executor interface {
	Engine() string
	Preview(ctx context.Context, batch *rowbatch.Batch, limit int) (domain.TabularResult, error)
	Statistics(ctx context.Context, batch *rowbatch.Batch) (domain.TableStatistics, error)
}

func previewLimit(limit int) int {
	if limit <= 0 {
		return DefaultPreviewLimit
	}
	return limit
}
