package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for the four core
// engines. It is registered against a caller-supplied registry, never
// the global default, so tests can run in parallel without collisions.
type Metrics struct {
	// Compatibility engine
	CompatibilityChecksTotal    *prometheus.CounterVec
	CompatibilityCheckDuration  *prometheus.HistogramVec
	CompatibilityCacheHits      prometheus.Counter
	CompatibilityCacheMisses    prometheus.Counter

	// Lineage engine
	LineageMutationsTotal *prometheus.CounterVec
	LineageNodesTotal     prometheus.Gauge
	LineageEdgesTotal     prometheus.Gauge

	// Analytics engine
	AnalyticsEventsPublished prometheus.Counter
	AnalyticsEventsDropped   prometheus.Counter
	AnalyticsHealthScore     *prometheus.GaugeVec

	// Storage tiers
	StorageTierHitsTotal      *prometheus.CounterVec
	StorageTierMissesTotal    *prometheus.CounterVec
	StorageTierDowngradesTotal *prometheus.CounterVec
	StorageTierLatency        *prometheus.HistogramVec
}

// NewMetrics creates and registers every engine's metrics against reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		CompatibilityChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_compatibility_checks_total",
				Help: "Total number of compatibility checks by mode and result.",
			},
			[]string{"mode", "result"},
		),
		CompatibilityCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_compatibility_check_duration_seconds",
				Help:    "Compatibility check duration in seconds.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"mode"},
		),
		CompatibilityCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registry_compatibility_cache_hits_total",
				Help: "Total number of compatibility result cache hits.",
			},
		),
		CompatibilityCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registry_compatibility_cache_misses_total",
				Help: "Total number of compatibility result cache misses.",
			},
		),

		LineageMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_lineage_mutations_total",
				Help: "Total number of lineage graph mutations by kind.",
			},
			[]string{"kind"},
		),
		LineageNodesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "registry_lineage_nodes_total",
				Help: "Current number of nodes in the lineage graph.",
			},
		),
		LineageEdgesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "registry_lineage_edges_total",
				Help: "Current number of edges in the lineage graph.",
			},
		),

		AnalyticsEventsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registry_analytics_events_published_total",
				Help: "Total number of usage events accepted onto the analytics bus.",
			},
		),
		AnalyticsEventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "registry_analytics_events_dropped_total",
				Help: "Total number of usage events dropped because the bus was full.",
			},
		),
		AnalyticsHealthScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "registry_analytics_health_score",
				Help: "Latest computed health score per schema.",
			},
			[]string{"schema_id"},
		),

		StorageTierHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_storage_tier_hits_total",
				Help: "Total number of reads served by each storage tier.",
			},
			[]string{"tier"},
		),
		StorageTierMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_storage_tier_misses_total",
				Help: "Total number of misses recorded against each storage tier.",
			},
			[]string{"tier"},
		),
		StorageTierDowngradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_storage_tier_downgrades_total",
				Help: "Total number of reads that fell through to the next tier after a tier failure.",
			},
			[]string{"from_tier", "to_tier"},
		),
		StorageTierLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "registry_storage_tier_latency_seconds",
				Help:    "Per-tier read latency in seconds.",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"tier"},
		),
	}

	reg.MustRegister(
		m.CompatibilityChecksTotal,
		m.CompatibilityCheckDuration,
		m.CompatibilityCacheHits,
		m.CompatibilityCacheMisses,
		m.LineageMutationsTotal,
		m.LineageNodesTotal,
		m.LineageEdgesTotal,
		m.AnalyticsEventsPublished,
		m.AnalyticsEventsDropped,
		m.AnalyticsHealthScore,
		m.StorageTierHitsTotal,
		m.StorageTierMissesTotal,
		m.StorageTierDowngradesTotal,
		m.StorageTierLatency,
	)

	return m
}
