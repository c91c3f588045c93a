// Package metrics provides Prometheus instrumentation for the simulation
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SimulationsCreated counts loan simulations originated.
	SimulationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mortgageflow_simulations_created_total",
		Help: "Total number of loan simulations created",
	})

	// PeriodsAdvanced counts periods stepped across all simulations.
	PeriodsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mortgageflow_periods_advanced_total",
		Help: "Total number of loan periods advanced",
	})

	// Refinances counts refinance operations applied.
	Refinances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mortgageflow_refinances_total",
		Help: "Total number of refinance operations",
	})

	// ExtraPayments counts payment adjustments, partitioned by kind
	// (one_time, recurring, other_costs).
	ExtraPayments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mortgageflow_extra_payments_total",
		Help: "Total number of payment adjustments applied",
	}, []string{"kind"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mortgageflow_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mortgageflow_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
