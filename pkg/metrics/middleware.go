package metrics

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// EnvLatencyBuckets overrides the default latency buckets with a
// comma-separated list of milliseconds, e.g. "100,200,400".
const EnvLatencyBuckets = "DOCFLOW_HTTP_LATENCY_BUCKETS"

const (
	requestsCollectorName = "docflow_http_requests_total"
	latencyCollectorName  = "docflow_http_request_duration_milliseconds"
)

var defaultLatencyBuckets = []float64{300, 500, 1000, 5000}

// Middleware records request count and latency partitioned by status
// code, method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMiddleware builds the request collectors for the named service.
func NewMiddleware(service string) *Middleware {
	labels := prometheus.Labels{"service": service}
	return &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        requestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and route.",
			ConstLabels: labels,
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        latencyCollectorName,
			Help:        "Request latency in milliseconds partitioned by status code, method and route.",
			ConstLabels: labels,
			Buckets:     latencyBuckets(),
		}, []string{"code", "method", "path"}),
	}
}

func latencyBuckets() []float64 {
	conf, ok := os.LookupEnv(EnvLatencyBuckets)
	if !ok {
		return defaultLatencyBuckets
	}

	parts := strings.Split(conf, ",")
	buckets := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			panic(err)
		}
		buckets = append(buckets, value)
	}
	return buckets
}

// Handler instruments the wrapped handler. Requests that never matched a
// chi route are not recorded, so unmatched paths cannot blow up the
// label cardinality.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}

		code := strconv.Itoa(ww.Status())
		route := rctx.RoutePattern()
		m.requests.WithLabelValues(code, r.Method, route).Inc()
		m.latency.WithLabelValues(code, r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// MustRegisterDefault adds the collectors to the default registry; call
// it once before serving /metrics.
func (m *Middleware) MustRegisterDefault() {
	prometheus.MustRegister(m.requests, m.latency)
}
