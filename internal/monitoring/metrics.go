package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	EntitiesTotal      *prometheus.CounterVec
	CooldownsTotal     *prometheus.CounterVec
	EnrichmentFailures *prometheus.CounterVec
	DroppedTotal       *prometheus.CounterVec
	RowsLoaded         *prometheus.CounterVec
}

// NewMetrics registers the counters with the given registerer. Passing a
// fresh registry keeps tests isolated from the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_entities_total",
			Help: "The total number of entities processed per source and outcome",
		}, []string{"source", "outcome"}), // outcome: 'fetched', 'failed'
		CooldownsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_rate_limit_cooldowns_total",
			Help: "The total number of rate-limit cooldowns taken",
		}, []string{"source"}),
		EnrichmentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_enrichment_failures_total",
			Help: "The total number of enrichment calls that degraded to defaults",
		}, []string{"source"}),
		DroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_records_dropped_total",
			Help: "The total number of records dropped at the serialization gate",
		}, []string{"source"}),
		RowsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extractor_rows_loaded_total",
			Help: "The total number of rows promoted into the warehouse",
		}, []string{"source"}),
	}
}

func (m *Metrics) IncFetched(source string) {
	m.EntitiesTotal.WithLabelValues(source, "fetched").Inc()
}

func (m *Metrics) IncFetchFailed(source string) {
	m.EntitiesTotal.WithLabelValues(source, "failed").Inc()
}

func (m *Metrics) IncCooldown(source string) {
	m.CooldownsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) IncEnrichmentFailure(source string) {
	m.EnrichmentFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) IncDropped(source string) {
	m.DroppedTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) AddRowsLoaded(source string, n int) {
	m.RowsLoaded.WithLabelValues(source).Add(float64(n))
}
