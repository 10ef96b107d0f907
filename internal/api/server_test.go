package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/models"
	"github.com/toppicks/bestseller-scraper/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.StateStore) {
	stateStore := storage.NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	return NewServer(stateStore, metrics.New(), slog.Default()), stateStore
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStateEndpoint(t *testing.T) {
	server, stateStore := newTestServer(t)
	require.NoError(t, stateStore.Save(&models.ScraperState{
		LastCategoryIndex:   12,
		CategoriesProcessed: 12,
		ProductsSubmitted:   11,
	}))

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var state models.ScraperState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 12, state.LastCategoryIndex)
	assert.Equal(t, 11, state.ProductsSubmitted)
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	server.metrics.IncProductsSubmitted()

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scraper_products_submitted_total")
}
