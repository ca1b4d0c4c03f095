package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "outage_chain"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	Runs              *prometheus.CounterVec // labels: outcome={success,extract_error,load_error}
	RowsLoaded        *prometheus.CounterVec // labels: table={events,tickets}
	RowsDropped       prometheus.Counter
	Chains            *prometheus.CounterVec // labels: kind
	SingletonsDropped prometheus.Counter
	RunDuration       prometheus.Histogram
	SinkErrors        *prometheus.CounterVec // labels: sink
	PipelineRunning   prometheus.Gauge
	LastRunRecords    prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Runs,
		m.RowsLoaded,
		m.RowsDropped,
		m.Chains,
		m.SingletonsDropped,
		m.RunDuration,
		m.SinkErrors,
		m.PipelineRunning,
		m.LastRunRecords,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows read from the input tables.",
		}, []string{"table"}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows rejected at the load boundary.",
		}),
		Chains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_total",
			Help:      "Reported chains by kind.",
		}, []string{"kind"}),
		SingletonsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singletons_dropped_total",
			Help:      "Outages that did not chain with any other outage.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-analyze-load run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed publish attempts by sink.",
		}, []string{"sink"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		LastRunRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Records produced by the most recent successful run.",
		}),
	}
}
