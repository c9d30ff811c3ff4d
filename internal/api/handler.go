// Package api serves the lakehouse explorer over JSON HTTP.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/service/explorer"
)

// Handler implements the /api routes on top of the explorer service.
type Handler struct {
	svc    *explorer.Service
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *explorer.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Get("/connection", h.Connection)
	r.Get("/namespaces", h.ListNamespaces)
	r.Get("/tables", h.ListAllTables)
	r.Get("/tables/{namespace}", h.ListTables)
	r.Get("/search", h.Search)
	r.Get("/overview", h.Overview)
	r.Route("/table/{namespace}/{table}", func(r chi.Router) {
		r.Get("/schema", h.Schema)
		r.Get("/metadata", h.Metadata)
		r.Get("/preview", h.Preview)
		r.Get("/statistics", h.Statistics)
		r.Post("/query", h.Query)
	})
}

type statusConfig struct {
	CatalogType     string `json:"catalog_type"`
	CatalogLocation string `json:"catalog_location"`
	StorageEndpoint string `json:"storage_endpoint"`
}

type statusResponse struct {
	Status    string       `json:"status"`
	Message   string       `json:"message"`
	Connected bool         `json:"connected"`
	Config    statusConfig `json:"config"`
}

// Status reports that the catalog is reachable.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ListNamespaces(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	ci := h.svc.ConnectionInfo()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:    "success",
		Message:   "Connected to lakehouse",
		Connected: true,
		Config: statusConfig{
			CatalogType:     ci.CatalogType,
			CatalogLocation: ci.CatalogLocation,
			StorageEndpoint: ci.StorageEndpoint,
		},
	})
}

// Connection reports catalog location and engine availability.
func (h *Handler) Connection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connection": h.svc.ConnectionInfo(),
		"status":     "connected",
	})
}

// ListNamespaces lists every namespace.
func (h *Handler) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListNamespaces(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespaces": names,
		"count":      len(names),
	})
}

type namespaceTables struct {
	Tables []string `json:"tables"`
	Count  int      `json:"count"`
}

// ListAllTables lists tables grouped by namespace.
func (h *Handler) ListAllTables(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.AllTables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	byNS := make(map[string]namespaceTables, len(groups))
	total := 0
	for _, g := range groups {
		byNS[g.Namespace] = namespaceTables{Tables: g.Tables, Count: len(g.Tables)}
		total += len(g.Tables)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"namespaces":       byNS,
		"total_namespaces": len(groups),
		"total_tables":     total,
	})
}

// ListTables lists one page of tables in a namespace.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	nsText, err := pathParam(r, "namespace")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ns, err := domain.ParseNamespace(nsText)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "max_results must be a non-negative integer")
			return
		}
		page.MaxResults = n
	}

	tables, next, err := h.svc.ListTables(r.Context(), ns, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := map[string]any{
		"namespace": ns.String(),
		"tables":    tables,
		"count":     len(tables),
	}
	if next != "" {
		resp["next_page_token"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search finds tables whose name contains q.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeBadRequest(w, "search term is required")
		return
	}
	results, err := h.svc.Search(r.Context(), term)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"search_term": term,
		"results":     results,
		"count":       len(results),
	})
}

// Overview summarises the catalog for the dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// Schema returns the table schema.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tableID(w, r)
	if !ok {
		return
	}
	schema, err := h.svc.Schema(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeTableJSON(w, id, "schema", schema)
}

// Metadata returns catalog metadata for the table.
func (h *Handler) Metadata(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tableID(w, r)
	if !ok {
		return
	}
	md, err := h.svc.Metadata(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeTableJSON(w, id, "metadata", md)
}

// Preview returns the first rows of the table.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tableID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	res, err := h.svc.Preview(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeTableJSON(w, id, "preview", res)
}

// Statistics returns per-column statistics for the table.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tableID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Statistics(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeTableJSON(w, id, "statistics", stats)
}

type queryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// maxQueryBody bounds the size of a query request body.
const maxQueryBody = 1 << 20

// Query runs user SQL against the table. SQL errors are reported inside the
// result with success=false and status 200.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tableID(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeBadRequest(w, "query is required")
		return
	}
	if req.Limit < 0 {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	outcome, err := h.svc.ExecuteQuery(r.Context(), id, req.Query, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeTableJSON(w, id, "query_result", outcome)
}

// tableID decodes the namespace and table path parameters, writing a 400 on
// failure.
func (h *Handler) tableID(w http.ResponseWriter, r *http.Request) (domain.TableIdentifier, bool) {
	ns, err := pathParam(r, "namespace")
	if err != nil {
		h.writeError(w, r, err)
		return domain.TableIdentifier{}, false
	}
	name, err := pathParam(r, "table")
	if err != nil {
		h.writeError(w, r, err)
		return domain.TableIdentifier{}, false
	}
	id, err := domain.NewTableIdentifier(ns, name)
	if err != nil {
		h.writeError(w, r, err)
		return domain.TableIdentifier{}, false
	}
	return id, true
}

func pathParam(r *http.Request, key string) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		return "", domain.ErrValidation("invalid %s: %v", key, err)
	}
	return v, nil
}

func writeTableJSON(w http.ResponseWriter, id domain.TableIdentifier, key string, v any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"namespace":  id.Namespace.String(),
		"table_name": id.Name,
		key:          v,
	})
}
