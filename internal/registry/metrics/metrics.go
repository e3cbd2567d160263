package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module. Tracks mutation
// counts, rejected operations by reason, operation latencies, and resolve
// cache effectiveness.
type Metrics struct {
	NamesRegistered   prometheus.Counter
	NamesTransferred  prometheus.Counter
	NameUpdates       *prometheus.CounterVec
	OperationRejected *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		NamesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namereg_names_registered_total",
			Help: "Total number of names registered",
		}),
		NamesTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namereg_names_transferred_total",
			Help: "Total number of ownership transfers",
		}),
		NameUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_name_updates_total",
			Help: "Total number of record updates by field",
		}, []string{"field"}),
		OperationRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "namereg_operation_rejected_total",
			Help: "Total number of operations rejected by validation or access control",
		}, []string{"operation", "reason"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "namereg_operation_duration_seconds",
			Help:    "Duration of registry operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namereg_resolve_cache_hits_total",
			Help: "Total number of resolve cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "namereg_resolve_cache_misses_total",
			Help: "Total number of resolve cache misses",
		}),
	}
}

// ObserveOperation records the duration of a registry operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementRejected records a rejected operation with its reason.
func (m *Metrics) IncrementRejected(operation, reason string) {
	m.OperationRejected.WithLabelValues(operation, reason).Inc()
}

// IncrementUpdate records a successful field update.
func (m *Metrics) IncrementUpdate(field string) {
	m.NameUpdates.WithLabelValues(field).Inc()
}
