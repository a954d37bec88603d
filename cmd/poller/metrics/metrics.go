// Package metrics provides Prometheus metrics instrumentation for the poller.
//
// Metrics exposed:
//   - gridsnap_poll_duration_seconds: Histogram of dashboard poll duration
//   - gridsnap_poll_rows: Gauge of rows returned by the last poll
//   - gridsnap_last_success_timestamp_seconds: Gauge of the last successful poll time
//   - gridsnap_snapshot_write_seconds: Histogram of snapshot file write duration
//   - gridsnap_poll_errors_total: Counter of errors by component and reason
//
// All metrics carry the source label.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the poller.
type Metrics struct {
	PollSeconds          prometheus.Histogram
	PollRows             prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
	WriteSeconds         prometheus.Histogram
	ErrorsTotal          *prometheus.CounterVec
}

// New creates the poller metrics and registers them with reg.
func New(reg prometheus.Registerer, source string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"source": source}

	return &Metrics{
		PollSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "gridsnap_poll_duration_seconds",
			Help:        "Time spent polling the dashboard",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		PollRows: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gridsnap_poll_rows",
			Help:        "Rows returned by the last successful poll",
			ConstLabels: labels,
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gridsnap_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful poll",
			ConstLabels: labels,
		}),

		WriteSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "gridsnap_snapshot_write_seconds",
			Help:        "Time spent writing snapshot files",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gridsnap_poll_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// RecordPoll records the duration and row count of a successful poll.
func (m *Metrics) RecordPoll(d time.Duration, rows int) {
	m.PollSeconds.Observe(d.Seconds())
	m.PollRows.Set(float64(rows))
}

// RecordWrite records the time spent writing a snapshot.
func (m *Metrics) RecordWrite(d time.Duration) {
	m.WriteSeconds.Observe(d.Seconds())
}

// RecordSuccess marks a completed tick.
func (m *Metrics) RecordSuccess(at time.Time) {
	m.LastSuccessTimestamp.Set(float64(at.Unix()))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
