package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "impact_engine"

// Metrics holds the Prometheus collectors for the assessment engine.
type Metrics struct {
	Assessments        *prometheus.CounterVec // labels: outcome={success,not_found,invalid,canceled,failure}
	AssessmentDuration prometheus.Histogram
	AffectedPopulation prometheus.Histogram

	// Snapshot metrics.
	SnapshotRecords *prometheus.GaugeVec   // labels: kind={disasters,census_blocks,sites}
	SnapshotAge     prometheus.Gauge       // unix seconds of the published snapshot
	Refreshes       *prometheus.CounterVec // labels: outcome={success,error}

	HotspotRuns          prometheus.Counter
	DetectionClusters    prometheus.Counter
	PublishedMessages    *prometheus.CounterVec // labels: outcome={success,error}
	BroadcastSubscribers prometheus.Gauge
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      h("Impact assessments by outcome."),
		}, []string{"outcome"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      h("Wall time of a full impact assessment."),
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AffectedPopulation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "affected_population",
			Help:      h("Affected population per assessment."),
			Buckets:   prometheus.ExponentialBuckets(10, 10, 7),
		}),
		SnapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      h("Records in the published snapshot by kind."),
		}, []string{"kind"}),
		SnapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_built_timestamp_seconds",
			Help:      h("Build time of the published snapshot."),
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_refreshes_total",
			Help:      h("Snapshot reloads by outcome."),
		}, []string{"outcome"}),
		HotspotRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hotspot_runs_total",
			Help:      h("Hotspot clustering requests."),
		}),
		DetectionClusters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_clusters_total",
			Help:      h("Wildfire clusters built from fire detections."),
		}),
		PublishedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_messages_total",
			Help:      h("Assessments written to Kafka by outcome."),
		}, []string{"outcome"}),
		BroadcastSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broadcast_subscribers",
			Help:      h("Active in-process assessment subscribers."),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Assessments,
		m.AssessmentDuration,
		m.AffectedPopulation,
		m.SnapshotRecords,
		m.SnapshotAge,
		m.Refreshes,
		m.HotspotRuns,
		m.DetectionClusters,
		m.PublishedMessages,
		m.BroadcastSubscribers,
	}
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// New creates metrics registered with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := newMetrics(true)
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	return m
}
