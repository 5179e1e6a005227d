// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/util"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveOperation("convert", time.Now(), nil)
	m.ObserveOperation("convert", time.Now(), fmt.Errorf("convert: %w", util.ErrInsufficientFunds))
	m.ObserveOperation("convert", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("convert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("convert", "insufficient_funds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("convert", "internal_error")))
}

func TestObserveRateRefresh(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRateRefresh("coingecko", errors.New("down"), nil)
	table, err := rates.NewTable(rates.Static().Map(), "coingecko", time.Unix(1700000000, 0))
	assert.NoError(t, err)
	m.ObserveRateRefresh("coingecko", nil, table)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateRefreshTotal.WithLabelValues("coingecko", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateRefreshTotal.WithLabelValues("coingecko", "ok")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.rateLastUpdate))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/v1/admin/accounts/{userID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/accounts/alice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/v1/admin/accounts/{userID}", "GET", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
