// Package observability holds the Prometheus metrics of the API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application in its own
// registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	OrdersCreated       *prometheus.CounterVec
	PointsRedeemed      prometheus.Counter
	PointsAwarded       prometheus.Counter
	SideEffects         *prometheus.CounterVec
	OptimisticRetries   *prometheus.CounterVec
	SprintStatusUpdates prometheus.Counter
}

// NewCollector creates a collector with metrics under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OrdersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Orders created, by item type and source",
			},
			[]string{"item_type", "source"},
		),
		PointsRedeemed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_redeemed_total",
				Help:      "Points spent in the store",
			},
		),
		PointsAwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_awarded_total",
				Help:      "Points credited for approved submissions",
			},
		),
		SideEffects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effects_total",
				Help:      "Best-effort emails and events, by name and outcome",
			},
			[]string{"name", "outcome"},
		),
		OptimisticRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimistic_lock_retries_total",
				Help:      "Writes retried after a version conflict",
			},
			[]string{"aggregate"},
		),
		SprintStatusUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sprint_status_updates_total",
				Help:      "Derived sprint statuses written back",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.OrdersCreated,
		c.PointsRedeemed,
		c.PointsAwarded,
		c.SideEffects,
		c.OptimisticRetries,
		c.SprintStatusUpdates,
	)
	return c
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSideEffect counts a best-effort side effect outcome.
func (c *Collector) ObserveSideEffect(name string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.SideEffects.WithLabelValues(name, outcome).Inc()
}

// ObserveRetry returns a conflict hook that counts retries for aggregate.
func (c *Collector) ObserveRetry(aggregate string) func(id string, attempt int) {
	counter := c.OptimisticRetries.WithLabelValues(aggregate)
	return func(id string, attempt int) { counter.Inc() }
}

// Middleware records request counts and latency by route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// the pattern is only complete once routing has finished
		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
