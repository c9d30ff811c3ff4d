// Package explorer is the entry point for every table operation. It loads a
// fresh table handle per request, dispatches to the query bridges and
// statistics executors and falls back from the primary engine when it is
// unavailable.
package explorer

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/rowbatch"
	"lake-explorer/internal/service/executor"
	"lake-explorer/internal/service/query"
)

// Limits applied when Options leaves them unset.
const (
	DefaultMaxPreviewRows = 1000
	DefaultMaxQueryRows   = 10000
)

// listConcurrency bounds the namespaces listed in parallel by AllTables.
const listConcurrency = 8

// Options configures a Service.
type Options struct {
	// Primary runs previews, queries and statistics. Nil means the primary
	// engine failed to start and every operation uses its fallback.
	Primary *engine.Pool
	// QueryFallback runs queries when Primary is unavailable. May be nil.
	QueryFallback *engine.Pool

	MaxPreviewRows int
	MaxQueryRows   int

	// StorageEndpoint is reported by ConnectionInfo.
	StorageEndpoint string
	Logger          *slog.Logger
}

// Service implements the explorer operations over one catalog.
type Service struct {
	catalog domain.Catalog

	primaryQuery  *query.Bridge
	fallbackQuery *query.Bridge
	primaryExec   executor.Executor // nil without a primary engine
	fallbackExec  executor.Executor

	maxPreview      int
	maxQuery        int
	storageEndpoint string
	logger          *slog.Logger
}

// New creates a Service.
func New(catalog domain.Catalog, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalog:         catalog,
		primaryQuery:    query.NewBridge(opts.Primary, logger),
		fallbackQuery:   query.NewBridge(opts.QueryFallback, logger),
		fallbackExec:    executor.Arrow{},
		maxPreview:      opts.MaxPreviewRows,
		maxQuery:        opts.MaxQueryRows,
		storageEndpoint: opts.StorageEndpoint,
		logger:          logger.With("component", "explorer"),
	}
	if opts.Primary != nil {
		s.primaryExec = executor.NewSQL(opts.Primary, logger)
	}
	if s.maxPreview <= 0 {
		s.maxPreview = DefaultMaxPreviewRows
	}
	if s.maxQuery <= 0 {
		s.maxQuery = DefaultMaxQueryRows
	}
	return s
}

// Catalog returns the underlying catalog.
func (s *Service) Catalog() domain.Catalog { return s.catalog }

// ListNamespaces returns the text form of every namespace.
func (s *Service) ListNamespaces(ctx context.Context) ([]string, error) {
	nss, err := s.catalog.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(nss))
	for i, ns := range nss {
		out[i] = ns.String()
	}
	return out, nil
}

// ListTables returns one page of table names in ns and the next page token.
func (s *Service) ListTables(ctx context.Context, ns domain.NamespacePath, page domain.PageRequest) ([]string, string, error) {
	ids, err := s.catalog.ListTables(ctx, ns)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	items, next := domain.Page(names, page)
	return items, next, nil
}

// AllTables lists the tables of every namespace. A namespace that fails to
// list is reported with no tables.
func (s *Service) AllTables(ctx context.Context) ([]domain.NamespaceTables, error) {
	nss, err := s.catalog.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.NamespaceTables, len(nss))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, ns := range nss {
		g.Go(func() error {
			out[i] = domain.NamespaceTables{Namespace: ns.String(), Tables: []string{}}
			ids, err := s.catalog.ListTables(gctx, ns)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("list tables failed", "namespace", ns.String(), "error", err)
				return nil
			}
			for _, id := range ids {
				out[i].Tables = append(out[i].Tables, id.Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns tables whose name contains term, ignoring case. Results
// are ordered by namespace, then table name.
func (s *Service) Search(ctx context.Context, term string) ([]domain.TableSearchResult, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil, domain.ErrValidation("search term is required")
	}

	groups, err := s.AllTables(ctx)
	if err != nil {
		return nil, err
	}
	results := []domain.TableSearchResult{}
	for _, g := range groups {
		for _, name := range g.Tables {
			if !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			full := name
			if g.Namespace != domain.DefaultNamespace {
				full = g.Namespace + "." + name
			}
			results = append(results, domain.TableSearchResult{Namespace: g.Namespace, TableName: name, FullName: full})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Namespace != results[j].Namespace {
			return results[i].Namespace < results[j].Namespace
		}
		return results[i].TableName < results[j].TableName
	})
	return results, nil
}

// Schema returns the table's schema.
func (s *Service) Schema(ctx context.Context, id domain.TableIdentifier) (domain.TableSchema, error) {
	tbl, err := s.catalog.LoadTable(ctx, id)
	if err != nil {
		return domain.TableSchema{}, err
	}
	return tbl.Schema(), nil
}

// Metadata returns catalog-level metadata for the table.
func (s *Service) Metadata(ctx context.Context, id domain.TableIdentifier) (domain.TableMetadata, error) {
	tbl, err := s.catalog.LoadTable(ctx, id)
	if err != nil {
		return domain.TableMetadata{}, err
	}
	return tbl.Metadata(ctx)
}

// scan materialises up to limit rows of tbl, wrapping failures as
// ScanFailedError.
func scan(ctx context.Context, tbl domain.Table, limit int64) (*rowbatch.Batch, error) {
	batch, err := tbl.Scan(ctx, limit)
	if err != nil {
		var sf *domain.ScanFailedError
		if errors.As(err, &sf) {
			return nil, err
		}
		return nil, domain.ErrScanFailed(tbl.Identifier(), err)
	}
	return batch, nil
}

// isEngineUnavailable reports whether err should trigger a fallback.
func isEngineUnavailable(err error) bool {
	var eu *domain.EngineUnavailableError
	return errors.As(err, &eu)
}
