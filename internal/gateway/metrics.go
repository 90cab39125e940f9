// ABOUTME: Prometheus metrics for authentication outcomes and request latency
// ABOUTME: Implements the auth.Observer interface consumed by the guard

package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyhaus/partner-gateway/internal/auth"
)

// Metrics collects gateway metrics on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	authOutcomes *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway metric vectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	authOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "partner_gateway",
		Subsystem: "auth",
		Name:      "outcomes_total",
		Help:      "Authentication outcomes by strategy and result.",
	}, []string{"strategy", "outcome"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "partner_gateway",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	registry.MustRegister(authOutcomes, httpDuration)

	return &Metrics{
		registry:     registry,
		authOutcomes: authOutcomes,
		httpDuration: httpDuration,
	}
}

// ObserveAuth records one authentication outcome. Satisfies auth.Observer.
func (m *Metrics) ObserveAuth(strategy auth.StrategyName, outcome string) {
	m.authOutcomes.WithLabelValues(string(strategy), outcome).Inc()
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware measures request duration labelled by chi route pattern, so
// per-listing or per-event URLs cannot explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status for metrics labelling.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
