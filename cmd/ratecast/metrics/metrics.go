// Package metrics provides Prometheus instrumentation for a ratecast run.
//
// A run is a batch job, so metrics are kept in a private registry and written
// once to a node-exporter textfile at the end of the run instead of being
// scraped over HTTP.
//
// Metrics exposed:
//   - ratecast_stage_seconds: Histogram of pipeline stage durations by stage
//   - ratecast_paths: Gauge of client/server paths by state (total, empty)
//   - ratecast_skipped_lines: Gauge of request-file lines that failed to parse
//   - ratecast_buckets: Gauge of resampled buckets across all paths
//   - ratecast_rejected_windows: Gauge of windows dropped for spanning a gap
//   - ratecast_samples: Gauge of rows by dataset (train, validation, test)
//   - ratecast_model_score: Gauge of evaluation scores by dataset, model, metric
//   - ratecast_last_success_timestamp_seconds: Unix time of the last successful run
//   - ratecast_errors_total: Counter of errors by component and reason
//
// All metrics carry the run label.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	registry *prometheus.Registry

	StageSeconds    *prometheus.HistogramVec
	Paths           *prometheus.GaugeVec
	SkippedLines    prometheus.Gauge
	Buckets         prometheus.Gauge
	RejectedWindows prometheus.Gauge
	Samples         *prometheus.GaugeVec
	ModelScore      *prometheus.GaugeVec
	LastSuccess     prometheus.Gauge
	ErrorsTotal     *prometheus.CounterVec
}

// New creates all metrics in a fresh registry.
func New(run string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run": run}

	return &Metrics{
		registry: reg,

		StageSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ratecast_stage_seconds",
			Help:        "Time spent in each pipeline stage",
			ConstLabels: labels,
			Buckets:     []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),

		Paths: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ratecast_paths",
			Help:        "Client/server paths discovered, by state",
			ConstLabels: labels,
		}, []string{"state"}),

		SkippedLines: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "ratecast_skipped_lines",
			Help:        "Request-file lines skipped as unparsable",
			ConstLabels: labels,
		}),

		Buckets: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "ratecast_buckets",
			Help:        "Resampled buckets across all paths",
			ConstLabels: labels,
		}),

		RejectedWindows: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "ratecast_rejected_windows",
			Help:        "Windows dropped because their buckets span a gap",
			ConstLabels: labels,
		}),

		Samples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ratecast_samples",
			Help:        "Rows per dataset",
			ConstLabels: labels,
		}, []string{"dataset"}),

		ModelScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ratecast_model_score",
			Help:        "Evaluation score by dataset, model and metric",
			ConstLabels: labels,
		}, []string{"dataset", "model", "metric"}),

		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "ratecast_last_success_timestamp_seconds",
			Help:        "Unix time of the last successful run",
			ConstLabels: labels,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "ratecast_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordStage records the time spent in a pipeline stage.
func (m *Metrics) RecordStage(stage string, d time.Duration) {
	m.StageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// SetPaths sets the discovered and empty path counts.
func (m *Metrics) SetPaths(total, empty int) {
	m.Paths.WithLabelValues("total").Set(float64(total))
	m.Paths.WithLabelValues("empty").Set(float64(empty))
}

// SetPreprocessing sets the parse and segmentation counters.
func (m *Metrics) SetPreprocessing(skippedLines, buckets, rejectedWindows int) {
	m.SkippedLines.Set(float64(skippedLines))
	m.Buckets.Set(float64(buckets))
	m.RejectedWindows.Set(float64(rejectedWindows))
}

// SetSamples sets the row count of a dataset.
func (m *Metrics) SetSamples(dataset string, n int) {
	m.Samples.WithLabelValues(dataset).Set(float64(n))
}

// SetScore sets one evaluation score.
func (m *Metrics) SetScore(dataset, model, metric string, value float64) {
	m.ModelScore.WithLabelValues(dataset, model, metric).Set(value)
}

// MarkSuccess stamps the last successful run time.
func (m *Metrics) MarkSuccess(t time.Time) {
	m.LastSuccess.Set(float64(t.Unix()))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// WriteTextfile writes all metrics to path in the Prometheus text format,
// creating the parent directory if needed.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
