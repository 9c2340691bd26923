package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics tracks the settlement activity of the lifecycle engine.
type EscrowMetrics struct {
	operations    *prometheus.CounterVec
	settlements   *prometheus.CounterVec
	feesCollected prometheus.Counter
}

var (
	escrowMetricsOnce sync.Once
	escrowRegistry    *EscrowMetrics
)

// Escrow returns the lazily-initialised metrics registry used to record
// escrow operation activity.
func Escrow() *EscrowMetrics {
	escrowMetricsOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "escrowd",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "escrowd",
				Subsystem: "engine",
				Name:      "settlements_total",
				Help:      "Total terminal transitions segmented by kind (release, auto_release, refund).",
			}, []string{"kind"}),
			feesCollected: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "escrowd",
				Subsystem: "engine",
				Name:      "fees_collected_units_total",
				Help:      "Sum of platform fees collected, in base asset units.",
			}),
		}
		prometheus.MustRegister(escrowRegistry.operations, escrowRegistry.settlements, escrowRegistry.feesCollected)
	})
	return escrowRegistry
}

// ObserveOperation records the outcome of one engine invocation.
func (m *EscrowMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

// ObserveSettlement records a terminal transition.
func (m *EscrowMetrics) ObserveSettlement(kind string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveFee adds a collected fee to the running counter. Non-positive
// samples are ignored.
func (m *EscrowMetrics) ObserveFee(units float64) {
	if m == nil || units <= 0 {
		return
	}
	m.feesCollected.Add(units)
}

func normalizeLabel(label string) string {
	trimmed := strings.ToLower(strings.TrimSpace(label))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
