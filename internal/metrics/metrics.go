// Package metrics exposes run counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/amaumene/tubearchive/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tubearchive"

// Metrics groups the collectors updated by archive runs. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	files        *prometheus.CounterVec
	partials     *prometheus.CounterVec
	bytesCopied  prometheus.Counter
	lastRunStart prometheus.Gauge
	lastRunEnd   prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Archive runs by result.",
		}, []string{"result"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Processed files by outcome and reason.",
		}, []string{"outcome", "reason"}),
		partials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_failures_total",
			Help:      "Non-fatal archive step failures by step.",
		}, []string{"step"}),
		bytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copied_bytes_total",
			Help:      "Bytes copied into the archive.",
		}),
		lastRunStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_start_timestamp_seconds",
			Help:      "Unix time the last run started.",
		}),
		lastRunEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_end_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(m.runs, m.files, m.partials, m.bytesCopied, m.lastRunStart, m.lastRunEnd)
	return m
}

// Handler serves the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted stamps the start time of a run
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.lastRunStart.SetToCurrentTime()
}

// RunFinished counts a run and stamps its end time
func (m *Metrics) RunFinished(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
	m.lastRunEnd.SetToCurrentTime()
}

// ObserveOutcome counts one processed file
func (m *Metrics) ObserveOutcome(o models.Outcome) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(string(o.Status), o.Reason).Inc()
	for _, step := range o.Partial {
		m.partials.WithLabelValues(step).Inc()
	}
}

// AddCopiedBytes adds n to the copied bytes counter
func (m *Metrics) AddCopiedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesCopied.Add(float64(n))
}
