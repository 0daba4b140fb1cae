// Package telemetry provides observability primitives for the gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ActiveRequests      prometheus.Gauge
	RouteCacheHits      prometheus.Counter
	RouteCacheMisses    prometheus.Counter
	ModelCacheHits      prometheus.Counter
	ModelCacheMisses    prometheus.Counter
	ExchangeCacheHits   prometheus.Counter
	ExchangeCacheMisses prometheus.Counter
	ContextLoads        *prometheus.CounterVec // labels: strategy (load, continue, drop_and_load)
	ContextLoadErrors   prometheus.Counter
	AccessDenied        *prometheus.CounterVec // labels: reason (role, access_request, tool_availability)
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "bodhi",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bodhi",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		RouteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "route_cache_hits_total",
			Help:      "Total model router alias resolution cache hits.",
		}),

		RouteCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "route_cache_misses_total",
			Help:      "Total model router alias resolution cache misses.",
		}),

		ModelCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "api_model_cache_hits_total",
			Help:      "Total API-model cache hits (fresh upstream model list).",
		}),

		ModelCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "api_model_cache_misses_total",
			Help:      "Total API-model cache misses requiring a refresh.",
		}),

		ExchangeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "token_exchange_cache_hits_total",
			Help:      "Total token-exchange cache hits.",
		}),

		ExchangeCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "token_exchange_cache_misses_total",
			Help:      "Total token-exchange cache misses requiring a round trip.",
		}),

		ContextLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "inference_context_loads_total",
			Help:      "Total shared inference context load transitions by strategy.",
		}, []string{"strategy"}),

		ContextLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "inference_context_load_errors_total",
			Help:      "Total shared inference context load failures.",
		}),

		AccessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bodhi",
			Name:      "access_denied_total",
			Help:      "Total requests rejected by the access decision layer.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.RouteCacheHits,
		m.RouteCacheMisses,
		m.ModelCacheHits,
		m.ModelCacheMisses,
		m.ExchangeCacheHits,
		m.ExchangeCacheMisses,
		m.ContextLoads,
		m.ContextLoadErrors,
		m.AccessDenied,
	)

	return m
}
