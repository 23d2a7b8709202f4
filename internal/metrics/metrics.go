package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the runboard prometheus collectors
type Metrics struct {
	Loads            *prometheus.CounterVec
	LoadDuration     prometheus.Histogram
	FeedFailures     *prometheus.CounterVec
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	Conflicts        *prometheus.GaugeVec
	Unassigned       prometheus.Gauge
}

// New registers the collectors on reg. Passing a fresh registry keeps
// tests independent of the global default registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "board_loads_total",
			Help:      "Board loads by result (ready, partial, superseded, refused)",
		}, []string{"result"}),
		LoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "board_load_seconds",
			Help:      "Time taken to fetch and rebuild a day's board",
			Buckets:   prometheus.DefBuckets,
		}),
		FeedFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_failures_total",
			Help:      "Failed feed fetches by feed",
		}, []string{"feed"}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Assignment mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		MutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mutation_seconds",
			Help:      "Round trip of assignment mutations including the reload",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Conflicts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_conflicts",
			Help:      "Conflicts on the active board by kind",
		}, []string{"kind"}),
		Unassigned: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "board_unassigned_flights",
			Help:      "Flights on the active board not in any run",
		}),
	}
}
