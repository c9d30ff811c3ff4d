package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lake-explorer/internal/domain"
	"lake-explorer/internal/service/explorer"
	"lake-explorer/internal/testutil"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := explorer.New(testutil.UsersCatalog(t), explorer.Options{Logger: testutil.DiscardLogger()})
	r := chi.NewRouter()
	MountRoutes(r, NewHandler(svc, testutil.DiscardLogger()))
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHome_ListsNamespacesAndTables(t *testing.T) {
	w := get(t, newRouter(t), "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>Overview | Lake Explorer</title>")
	assert.Contains(t, body, `href="/tables/default/users"`)
	assert.Contains(t, body, `href="/tables/sales/orders"`)
	assert.Contains(t, body, "arrow (fallback): available")
	assert.Contains(t, body, "Signed in as anonymous")
}

func TestHome_ShowsPrincipal(t *testing.T) {
	h := newRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(domain.WithPrincipal(req.Context(), domain.ContextPrincipal{Subject: "u1", Name: "ann@example.com"}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "Signed in as ann@example.com")
}

func TestTableDetail(t *testing.T) {
	w := get(t, newRouter(t), "/tables/sales/orders?limit=2")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "sales.orders")
	assert.Contains(t, body, "customer")
	assert.Contains(t, body, "2 rows (limit 2)")
	assert.Contains(t, body, "ann")
}

func TestTableDetail_NullCells(t *testing.T) {
	w := get(t, newRouter(t), "/tables/default/users")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<td>NULL</td>")
	assert.Contains(t, w.Body.String(), "owner")
}

func TestTableDetail_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		text   string
	}{
		{"unknown table", "/tables/sales/missing", http.StatusNotFound, "Not Found"},
		{"invalid namespace", "/tables/a%5C/users", http.StatusBadRequest, "Invalid Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, newRouter(t), tt.path)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.text)
		})
	}
}

func TestStylesheet(t *testing.T) {
	w := get(t, newRouter(t), stylesheetPath)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), ".card{")
}

func TestTableHref_EscapesSegments(t *testing.T) {
	assert.Equal(t, "/tables/a.b/my%20table", tableHref("a.b", "my table"))
}
