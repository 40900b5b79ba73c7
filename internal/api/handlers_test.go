package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/falabella-scraper/internal/scraper"
)

func newTestRouter() (http.Handler, *scraper.Progress) {
	progress := scraper.NewProgress("run-42")
	progress.Plan(3)
	progress.StartCategory("Televisores")
	progress.AddRecord("Televisores")
	progress.AddRecord("Televisores")
	progress.FinishCategory("Televisores", nil)
	progress.StartCategory("Celulares y Teléfonos")
	progress.FinishCategory("Celulares y Teléfonos", errors.New("failed after 3 retries"))
	progress.StartCategory("Neveras")
	progress.SetPage(2)

	metrics := scraper.NewMetrics()
	metrics.IncPage()

	return NewRouter(progress, metrics.Registry, slog.Default()), progress
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter()

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "run-42", body["run_id"])
	assert.Equal(t, true, body["running"])
}

func TestGetStatus(t *testing.T) {
	h, _ := newTestRouter()

	rec := get(t, h, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap scraper.ProgressSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.Records)
	assert.Equal(t, "Neveras", snap.CurrentCategory)
	assert.Equal(t, 2, snap.CurrentPage)
	assert.Equal(t, 3, snap.CategoriesPlanned)
	assert.Equal(t, []string{"Televisores"}, snap.CategoriesDone)
}

func TestGetCategory(t *testing.T) {
	h, _ := newTestRouter()

	tests := []struct {
		name    string
		code    int
		state   string
		records int
	}{
		{"Televisores", http.StatusOK, "done", 2},
		{"Celulares y Teléfonos", http.StatusOK, "failed", 0},
		{"Neveras", http.StatusOK, "running", 0},
		{"Colchones", http.StatusNotFound, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, "/api/v1/categories/"+url.PathEscape(tt.name))
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}

			var status CategoryStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.name, status.Name)
			assert.Equal(t, tt.state, status.State)
			assert.Equal(t, tt.records, status.Records)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter()

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "crawler_pages_total 1"))
}

func TestMetricsDisabled(t *testing.T) {
	h := NewRouter(scraper.NewProgress("run"), nil, slog.Default())

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
