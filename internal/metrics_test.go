package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, router http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetricsMiddlewareUsesRoutePatterns(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/123", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	body := scrape(t, router)
	assert.Contains(t, body, "http_request_duration_seconds")
	assert.Contains(t, body, `http_requests_total{method="GET",path="/assets/{id}",status="404"} 1`)
	assert.NotContains(t, body, `path="/assets/123"`)
	assert.Contains(t, body, "go_goroutines")
	// The scrape itself is the only request in flight.
	assert.Contains(t, body, "http_requests_in_flight 1")
}

func TestMetricsUnmatchedRoutesShareLabel(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	for _, path := range []string{"/nope/1", "/nope/2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, router)
	assert.Contains(t, body, `http_requests_total{method="GET",path="unmatched",status="404"} 2`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = false
	env := newTestEnv(t, cfg, nil)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
