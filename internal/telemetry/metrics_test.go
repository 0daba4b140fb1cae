package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.RequestDuration == nil {
		t.Error("RequestDuration is nil")
	}
	if m.ActiveRequests == nil {
		t.Error("ActiveRequests is nil")
	}
	if m.RouteCacheHits == nil {
		t.Error("RouteCacheHits is nil")
	}
	if m.RouteCacheMisses == nil {
		t.Error("RouteCacheMisses is nil")
	}
	if m.ModelCacheHits == nil {
		t.Error("ModelCacheHits is nil")
	}
	if m.ExchangeCacheHits == nil {
		t.Error("ExchangeCacheHits is nil")
	}
	if m.ContextLoads == nil {
		t.Error("ContextLoads is nil")
	}
	if m.AccessDenied == nil {
		t.Error("AccessDenied is nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one metric family")
	}
}

func TestNewMetricsIncrement(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("POST", "/v1/chat/completions", "200").Inc()
	m.RouteCacheHits.Inc()
	m.RouteCacheMisses.Inc()
	m.ActiveRequests.Set(5)
	m.ContextLoads.WithLabelValues("continue").Inc()
	m.AccessDenied.WithLabelValues("role").Inc()
	m.RequestDuration.WithLabelValues("POST", "/v1/chat/completions").Observe(0.123)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather after increment: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	want := []string{
		"bodhi_requests_total",
		"bodhi_route_cache_hits_total",
		"bodhi_route_cache_misses_total",
		"bodhi_active_requests",
		"bodhi_request_duration_seconds",
		"bodhi_inference_context_loads_total",
		"bodhi_access_denied_total",
	}
	for _, name := range want {
		if !names[name] {
			t.Errorf("missing metric %q in gathered families", name)
		}
	}
}

// SetupTracing is not unit-tested because it requires a gRPC connection
// to an OTLP collector, which is integration-test territory.
