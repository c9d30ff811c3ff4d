// Package ui renders the HTML catalog browser.
package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/service/explorer"

	gomponents "maragu.dev/gomponents"
)

// previewRows is the number of rows shown on a table page.
const previewRows = 20

type Handler struct {
	svc    *explorer.Service
	logger *slog.Logger
}

func NewHandler(svc *explorer.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, logger: logger}
}

// MountRoutes registers the HTML pages and the stylesheet on r.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.Home)
	r.Get("/static/app.css", serveStylesheet)
	r.Get("/tables/{namespace}/{table}", h.TableDetail)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	ci := h.svc.ConnectionInfo()
	renderHTML(w, http.StatusOK, overviewPage(overviewPageData{
		Principal:  principalFromContext(r.Context()),
		Overview:   ov,
		Connection: ci,
	}))
}

func (h *Handler) TableDetail(w http.ResponseWriter, r *http.Request) {
	ns, _ := url.PathUnescape(chi.URLParam(r, "namespace"))
	name, _ := url.PathUnescape(chi.URLParam(r, "table"))
	id, err := domain.NewTableIdentifier(ns, name)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}

	limit := previewRows
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	md, err := h.svc.Metadata(r.Context(), id)
	if err != nil {
		h.renderServiceError(w, r, err)
		return
	}
	d := tablePageData{
		Principal: principalFromContext(r.Context()),
		ID:        id,
		Metadata:  md,
	}
	preview, err := h.svc.Preview(r.Context(), id, limit)
	if err != nil {
		h.logger.WarnContext(r.Context(), "table page preview failed", "table", id.String(), "error", err)
		d.PreviewError = err.Error()
	} else {
		d.Preview = preview
	}
	renderHTML(w, http.StatusOK, tablePage(d))
}

func (h *Handler) renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	title := "Unexpected Error"
	message := "An unexpected error occurred while loading this page."

	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var invalidNS *domain.InvalidNamespaceError
	var unavailable *domain.EngineUnavailableError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		title = "Not Found"
		message = notFound.Error()
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = validation.Error()
	case errors.As(err, &invalidNS):
		status = http.StatusBadRequest
		title = "Invalid Request"
		message = invalidNS.Error()
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
		title = "Engine Unavailable"
		message = unavailable.Error()
	default:
		h.logger.ErrorContext(r.Context(), "page failed", "path", r.URL.Path, "error", err)
	}
	renderHTML(w, status, errorPage(title, message))
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func principalFromContext(ctx context.Context) domain.ContextPrincipal {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(p.Name) == "" {
		return domain.ContextPrincipal{Name: "anonymous"}
	}
	return p
}

// tableHref links to the table page, escaping each segment.
func tableHref(namespace, table string) string {
	return "/tables/" + url.PathEscape(namespace) + "/" + url.PathEscape(table)
}
