// Package metrics - Prometheus instrumentation for the pricing service
// All methods are safe on a nil *Metrics so callers can run uninstrumented.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"commodity-pricing/core/breakeven"
)

// Import row outcomes
const (
	ImportImported = "imported"
	ImportSkipped  = "skipped"
)

// Metrics collects Prometheus metrics on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	simulations     prometheus.Counter
	breakEvens      *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the registry and registers every collector
func New() *Metrics {
	registry := prometheus.NewRegistry()
	simulations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_simulations_total",
		Help: "Number of price simulations calculated.",
	})
	breakEvens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_break_even_total",
		Help: "Number of break-even analyses by resulting status.",
	}, []string{"status"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_import_rows_total",
		Help: "Number of product import rows by result.",
	}, []string{"result"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_http_requests_total",
		Help: "Number of HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(simulations, breakEvens, importRows, requests, duration)

	// export every status at zero so rates work before the first analysis
	for _, status := range breakeven.AllStatuses() {
		breakEvens.WithLabelValues(status.String())
	}

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		simulations:     simulations,
		breakEvens:      breakEvens,
		importRows:      importRows,
		requestsTotal:   requests,
		requestDuration: duration,
	}
}

// Handler serves the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// SimulationCalculated counts one price simulation
func (m *Metrics) SimulationCalculated() {
	if m == nil {
		return
	}
	m.simulations.Inc()
}

// BreakEvenAnalyzed counts one break-even analysis
func (m *Metrics) BreakEvenAnalyzed(status string) {
	if m == nil {
		return
	}
	m.breakEvens.WithLabelValues(status).Inc()
}

// ImportRows adds the outcome of an import run
func (m *Metrics) ImportRows(imported, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(ImportImported).Add(float64(imported))
	m.importRows.WithLabelValues(ImportSkipped).Add(float64(skipped))
}

// Middleware records count and duration for every HTTP request
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
