package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// nuisance-watch pipeline.
type Metrics struct {
	RecordsConsumed prometheus.Counter
	RecordsFiltered *prometheus.CounterVec // labels: reason={malformed,unclassified,unknown_zip,unlocatable}
	ClustersEmitted *prometheus.CounterVec // labels: trend={spike,elevated,normal}
	RoundupsEmitted prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Window processing metrics.
	WindowRecords          prometheus.Histogram
	WindowProcessingTime   prometheus.Histogram
	WindowStructuralErrors prometheus.Counter

	// Baseline history metrics.
	BaselineRequests    *prometheus.CounterVec // labels: outcome={success,error}
	BaselineCache       *prometheus.CounterVec // labels: result={hit,miss}
	BaselineAPIDuration prometheus.Histogram
	BaselineEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsConsumed,
		m.RecordsFiltered,
		m.ClustersEmitted,
		m.RoundupsEmitted,
		m.PipelineRunning,
		m.WindowRecords,
		m.WindowProcessingTime,
		m.WindowStructuralErrors,
		m.BaselineRequests,
		m.BaselineCache,
		m.BaselineAPIDuration,
		m.BaselineEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests never hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "records_consumed_total",
			Help:      "Total complaint records read from the source topic.",
		}),
		RecordsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "records_filtered_total",
			Help:      "Records dropped before clustering, by reason.",
		}, []string{"reason"}),
		ClustersEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "clusters_emitted_total",
			Help:      "Significant clusters published, by trend.",
		}, []string{"trend"}),
		RoundupsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "roundups_emitted_total",
			Help:      "Neighborhood roundup summaries published.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nuisance_watch",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		WindowRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nuisance_watch",
			Name:      "window_records",
			Help:      "Number of records accumulated per batch window.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		WindowProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nuisance_watch",
			Name:      "window_processing_duration_seconds",
			Help:      "Duration of a complete window run: engine plus publish.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		WindowStructuralErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "window_structural_errors_total",
			Help:      "Batch windows aborted by structurally invalid records.",
		}),
		BaselineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "baseline_requests_total",
			Help:      "Baseline history API requests by outcome.",
		}, []string{"outcome"}),
		BaselineCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nuisance_watch",
			Name:      "baseline_cache_total",
			Help:      "Baseline cache lookups by result.",
		}, []string{"result"}),
		BaselineAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nuisance_watch",
			Name:      "baseline_api_duration_seconds",
			Help:      "Baseline history API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		BaselineEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nuisance_watch",
			Name:      "baseline_enabled",
			Help:      "1 when baseline history comparison is enabled, 0 otherwise.",
		}),
	}
}
