package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lake-explorer/internal/middleware"
	"lake-explorer/internal/service/explorer"
	"lake-explorer/internal/ui"
)

// PublicPaths are served without authentication.
var PublicPaths = []string{"/api/status", "/static/app.css"}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Service     *explorer.Service
	Logger      *slog.Logger
	CORSOrigins []string
	RateLimit   middleware.RateLimitConfig
	// Auth is nil when authentication is disabled.
	Auth *middleware.Authenticator
}

// NewRouter builds the HTTP handler. The rate limiter's cleanup goroutine
// stops when ctx is done.
func NewRouter(ctx context.Context, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if opts.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(ctx, opts.RateLimit))
	}
	if opts.Auth != nil {
		r.Use(opts.Auth.Middleware())
	}

	h := NewHandler(opts.Service, logger.With("component", "api"))
	r.Route("/api", h.Routes)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	ui.MountRoutes(r, ui.NewHandler(opts.Service, logger.With("component", "ui")))
	return r
}
