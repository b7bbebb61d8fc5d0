package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
// Tracks registration outcomes and the resolution hot path.
type Metrics struct {
	DomainsRegistered prometheus.Counter
	DomainsRenewed    prometheus.Counter
	TargetsUpdated    prometheus.Counter
	FeesCollected     prometheus.Counter
	RegisterDuration  prometheus.Histogram
	ResolveDuration   prometheus.Histogram
	ResolveCacheHits  prometheus.Counter
	ResolveCacheMiss  prometheus.Counter
	EventsDropped     prometheus.Counter
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		DomainsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_registered_total",
			Help: "Total number of successful domain registrations",
		}),
		DomainsRenewed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_domains_renewed_total",
			Help: "Total number of successful renewals",
		}),
		TargetsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_targets_updated_total",
			Help: "Total number of resolution target updates",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_fees_collected_units_total",
			Help: "Total fees collected, in USDC base units",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_register_duration_seconds",
			Help:    "Duration of register operations including fee collection",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "registrar_resolve_duration_seconds",
			Help:    "Duration of resolve operations (read hot path)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		ResolveCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_resolve_cache_hits_total",
			Help: "Resolve lookups served from the cache",
		}),
		ResolveCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_resolve_cache_misses_total",
			Help: "Resolve lookups that fell through to the store",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "registrar_events_dropped_total",
			Help: "Registry events dropped because the publisher inbox was full",
		}),
	}
}

// ObserveRegister records the duration of a register operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// ObserveResolve records the duration of a resolve operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}
