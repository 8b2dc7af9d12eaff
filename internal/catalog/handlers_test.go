package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/pasarhub/backend-pos/internal/store/memory"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	h := &Handler{Svc: NewService(memory.New(), nil)}
	r := chi.NewRouter()
	r.Post("/categories", h.CreateCategory)
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{id}", h.GetCategory)
	r.Post("/items", h.CreateItem)
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.GetItem)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateCategoryAndItemOverHTTP(t *testing.T) {
	r := newRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/categories", map[string]any{"name": "drinks"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.Data.ID)

	rec = doJSON(t, r, http.MethodPost, "/items", map[string]any{
		"categoryId": created.Data.ID,
		"name":       "es teh",
		"unitPrice":  "10",
		"unitType":   "pcs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "es teh")
}

func TestCreateItemRejectsInvalidPayload(t *testing.T) {
	r := newRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/items", map[string]any{
		"categoryId": 0,
		"name":       "",
		"unitType":   "bag",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestGetItemNotFound(t *testing.T) {
	r := newRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/items/42", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
