package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMetricsRouter(t *testing.T, reg prometheus.Registerer) (*gin.Engine, *HTTPMetrics) {
	t.Helper()

	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("NewHTTPMetrics returned error: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(metrics.Handler())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router, metrics
}

func TestHTTPMetricsCollapsesUnmatchedRoutes(t *testing.T) {
	router, metrics := newMetricsRouter(t, prometheus.NewRegistry())

	for _, path := range []string{"/ping", "/nope/1", "/nope/2"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	matched := testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "/ping", "200"))
	if matched != 1 {
		t.Fatalf("matched route counter = %v, want 1", matched)
	}

	unmatched := testutil.ToFloat64(metrics.Requests.WithLabelValues(http.MethodGet, "unmatched", "404"))
	if unmatched != 2 {
		t.Fatalf("unmatched route counter = %v, want 2", unmatched)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	router, _ := newMetricsRouter(t, reg)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	again, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: reg})
	if err != nil {
		t.Fatalf("second NewHTTPMetrics returned error: %v", err)
	}

	count := testutil.ToFloat64(again.Requests.WithLabelValues(http.MethodGet, "/ping", "200"))
	if count != 1 {
		t.Fatalf("reused counter = %v, want 1", count)
	}
}
