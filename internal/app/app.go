// Package app wires configuration into the catalog, the SQL engines and the
// explorer service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"lake-explorer/internal/api"
	"lake-explorer/internal/catalog/ducklake"
	"lake-explorer/internal/catalog/memory"
	"lake-explorer/internal/config"
	"lake-explorer/internal/domain"
	"lake-explorer/internal/engine"
	"lake-explorer/internal/middleware"
	"lake-explorer/internal/service/explorer"
	"lake-explorer/internal/storage"
)

// App holds the fully-wired application. Close releases the catalog and the
// engine pools.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Catalog domain.Catalog
	Service *explorer.Service

	closers []io.Closer
}

// New opens the catalog and the engines described by cfg. An engine that
// fails to start is logged and left out, so the service runs on its
// fallbacks; a catalog that fails to open is an error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range cfg.Warnings {
		logger.Warn("config", "warning", w)
	}

	a := &App{Config: cfg, Logger: logger}

	cat, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat
	if c, ok := cat.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	primary := a.openDuckDB(ctx)
	fallback := a.openSQLite(ctx)

	a.Service = explorer.New(cat, explorer.Options{
		Primary:         primary,
		QueryFallback:   fallback,
		MaxPreviewRows:  cfg.Limits.MaxPreviewRows,
		MaxQueryRows:    cfg.Limits.MaxQueryRows,
		StorageEndpoint: cfg.StorageEndpoint(),
		Logger:          logger,
	})
	return a, nil
}

func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Catalog, error) {
	switch cfg.Catalog.Type {
	case config.CatalogMemory:
		if cfg.Catalog.FixturePath == "" {
			return memory.New(), nil
		}
		cat, err := memory.Load(cfg.Catalog.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("load catalog fixture: %w", err)
		}
		logger.Info("memory catalog loaded", "fixture", cfg.Catalog.FixturePath)
		return cat, nil

	default:
		store, err := storage.NewRouter(ctx, StorageOptions(cfg))
		if err != nil {
			return nil, fmt.Errorf("configure object storage: %w", err)
		}
		cat, err := ducklake.Open(ctx, ducklake.Options{
			MetastorePath: cfg.Catalog.MetastorePath,
			DataPath:      cfg.Catalog.DataPath,
			Store:         store,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return cat, nil
	}
}

// StorageOptions maps the object store sections of cfg onto storage.Options.
func StorageOptions(cfg *config.Config) storage.Options {
	return storage.Options{
		S3: storage.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			Insecure:        cfg.S3.Insecure,
		},
		GCS: storage.GCSOptions{CredentialsFile: cfg.GCS.CredentialsFile},
		Azure: storage.AzureOptions{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			ServiceURL:  cfg.Azure.ServiceURL,
		},
	}
}

func (a *App) openDuckDB(ctx context.Context) *engine.Pool {
	ec := a.Config.Engine
	if !ec.Enabled {
		a.Logger.Info("duckdb disabled, using fallback engines")
		return nil
	}
	pool, err := engine.OpenDuckDB(ctx, engine.DuckDBOptions{
		Sessions:     ec.Sessions,
		MemoryLimit:  ec.MemoryLimit,
		Threads:      ec.Threads,
		QueryTimeout: ec.QueryTimeout,
	}, a.Logger)
	if err != nil {
		a.Logger.Warn("duckdb unavailable, using fallback engines", "error", err)
		return nil
	}
	a.closers = append(a.closers, pool)
	a.Logger.Info("duckdb ready", "sessions", pool.Size())
	return pool
}

func (a *App) openSQLite(ctx context.Context) *engine.Pool {
	ec := a.Config.Engine
	if !ec.SQLiteFallback {
		return nil
	}
	pool, err := engine.OpenSQLite(ctx, 1, ec.QueryTimeout, a.Logger)
	if err != nil {
		a.Logger.Warn("sqlite query fallback unavailable", "error", err)
		return nil
	}
	a.closers = append(a.closers, pool)
	return pool
}

// Authenticator builds the request authenticator, or returns nil when
// authentication is disabled. OIDC discovery contacts the issuer.
func (a *App) Authenticator(ctx context.Context) (*middleware.Authenticator, error) {
	auth := a.Config.Auth
	switch {
	case auth.OIDCEnabled():
		v, err := middleware.NewOIDCValidator(ctx, auth.IssuerURL, auth.Audience, auth.AllowedIssuers)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		return middleware.NewAuthenticator(v, "oidc", auth, a.Logger, api.PublicPaths...), nil
	case auth.JWTSecret != "":
		v := middleware.NewSharedSecretValidator(auth.JWTSecret)
		return middleware.NewAuthenticator(v, "jwt", auth, a.Logger, api.PublicPaths...), nil
	default:
		return nil, nil
	}
}

// Router builds the HTTP handler. Background work started for it stops when
// ctx is done.
func (a *App) Router(ctx context.Context) (http.Handler, error) {
	auth, err := a.Authenticator(ctx)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(ctx, api.RouterOptions{
		Service:     a.Service,
		Logger:      a.Logger,
		CORSOrigins: a.Config.CORSAllowedOrigins,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.Config.RateLimitRPS,
			Burst:             a.Config.RateLimitBurst,
		},
		Auth: auth,
	}), nil
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger returns a JSON logger in production and a text logger otherwise.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
