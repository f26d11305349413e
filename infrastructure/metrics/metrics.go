package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cpuminer"

// Handshake results, used as the value of the "result" label.
const (
	HandshakeSuccess  = "success"
	HandshakeRejected = "rejected"
	HandshakeFailed   = "failed"
)

// Metrics holds the miner's prometheus collectors. Every method is safe to
// call on a nil *Metrics, in which case nothing is recorded.
type Metrics struct {
	hashesTried       prometheus.Counter
	solutionsFound    prometheus.Counter
	searchesExhausted prometheus.Counter
	handshakes        *prometheus.CounterVec
}

// New returns unregistered miner metrics.
func New() *Metrics {
	return &Metrics{
		hashesTried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hashes_tried_total",
			Help:      "Number of block header hashes computed",
		}),
		solutionsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solutions_found_total",
			Help:      "Number of nonces found that meet the target",
		}),
		searchesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_exhausted_total",
			Help:      "Number of nonce ranges covered without a solution",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_handshakes_total",
			Help:      "Pool connection attempts by result (success, rejected, failed)",
		}, []string{"result"}),
	}
}

// Register registers every collector with registerer.
func (m *Metrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{m.hashesTried, m.solutionsFound, m.searchesExhausted, m.handshakes}
	for _, collector := range collectors {
		err := registerer.Register(collector)
		if err != nil {
			return errors.Wrap(err, "failed to register miner metrics")
		}
	}
	return nil
}

// AddHashesTried adds n to the hashes tried.
func (m *Metrics) AddHashesTried(n uint64) {
	if m == nil {
		return
	}
	m.hashesTried.Add(float64(n))
}

// SolutionFound counts a found solution.
func (m *Metrics) SolutionFound() {
	if m == nil {
		return
	}
	m.solutionsFound.Inc()
}

// SearchExhausted counts a nonce range covered without a solution.
func (m *Metrics) SearchExhausted() {
	if m == nil {
		return
	}
	m.searchesExhausted.Inc()
}

// HandshakeResult counts a pool connection attempt ending with result.
func (m *Metrics) HandshakeResult(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}
