// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the upstream broker API client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meuacessor_http_requests_total",
		Help: "Total HTTP requests served, by route, method and status.",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meuacessor_http_request_duration_seconds",
		Help:    "HTTP request latency, by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	brokerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meuacessor_broker_requests_total",
		Help: "Requests issued to the broker API, by endpoint and outcome.",
	}, []string{"endpoint", "status"})

	brokerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meuacessor_broker_request_duration_seconds",
		Help:    "Broker API request latency, by endpoint.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"endpoint"})

	reportCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meuacessor_report_cache_total",
		Help: "Report service cache lookups, by result (hit or miss).",
	}, []string{"result"})
)

// ObserveBrokerRequest records one upstream broker call.
func ObserveBrokerRequest(endpoint, status string, elapsed time.Duration) {
	brokerRequestsTotal.WithLabelValues(endpoint, status).Inc()
	brokerRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveReportCache records a report cache hit or miss.
func ObserveReportCache(hit bool) {
	if hit {
		reportCacheHits.WithLabelValues("hit").Inc()
	} else {
		reportCacheHits.WithLabelValues("miss").Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments every request with the route pattern chi
// resolved for it, so path parameters do not explode label cardinality.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
