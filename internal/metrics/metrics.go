// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brokerage-ledger/internal/rates"
	"brokerage-ledger/internal/util"
)

// Metrics holds the ledger's Prometheus collectors.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	rateRefreshTotal  *prometheus.CounterVec
	rateLastUpdate    prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger service operations by outcome (ok or error code).",
			},
			[]string{"operation", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Latency of ledger service operations, lock wait included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		rateRefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rate_refresh_total",
				Help: "Rate table refresh attempts by provider and result.",
			},
			[]string{"provider", "result"},
		),
		rateLastUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_rate_last_update_timestamp_seconds",
			Help: "Unix time of the rate snapshot currently in use.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of response latency (seconds) for HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
		gatherer: reg,
	}
	reg.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.rateRefreshTotal,
		m.rateLastUpdate,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// ObserveOperation records one ledger operation. err == nil counts as "ok".
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = util.ErrorCode(err)
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRateRefresh implements rates.RefreshObserver.
func (m *Metrics) ObserveRateRefresh(provider string, err error, t *rates.Table) {
	if err != nil {
		m.rateRefreshTotal.WithLabelValues(provider, "error").Inc()
		return
	}
	m.rateRefreshTotal.WithLabelValues(provider, "ok").Inc()
	m.rateLastUpdate.Set(float64(t.UpdatedAt().Unix()))
}

// Middleware counts requests per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
