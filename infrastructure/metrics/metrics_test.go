package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// gather returns the value of every counter in registry, keyed by name and,
// for labeled counters, by name and label value.
func gather(t *testing.T, registry *prometheus.Registry) map[string]float64 {
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %s", err)
	}
	values := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += "/" + label.GetValue()
			}
			values[key] = metric.GetCounter().GetValue()
		}
	}
	return values
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New()
	err := m.Register(registry)
	if err != nil {
		t.Fatalf("Register: unexpected error %s", err)
	}

	m.AddHashesTried(1000)
	m.AddHashesTried(24)
	m.SolutionFound()
	m.SearchExhausted()
	m.SearchExhausted()
	m.HandshakeResult(HandshakeSuccess)
	m.HandshakeResult(HandshakeRejected)
	m.HandshakeResult(HandshakeRejected)

	want := map[string]float64{
		"cpuminer_hashes_tried_total":             1024,
		"cpuminer_solutions_found_total":          1,
		"cpuminer_searches_exhausted_total":       2,
		"cpuminer_pool_handshakes_total/success":  1,
		"cpuminer_pool_handshakes_total/rejected": 2,
	}
	got := gather(t, registry)
	for name, value := range want {
		if got[name] != value {
			t.Errorf("%s: got %v, want %v", name, got[name], value)
		}
	}

	if err := m.Register(registry); err == nil {
		t.Errorf("Register: expected an error when registering twice")
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.AddHashesTried(1)
	m.SolutionFound()
	m.SearchExhausted()
	m.HandshakeResult(HandshakeFailed)
}
