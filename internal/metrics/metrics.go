// Package metrics collects pipeline metrics in a private Prometheus registry
// and writes them in the node-exporter textfile format at the end of a run.
// All methods are safe to call on a nil *Recorder.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oktabot"

// Recorder holds the pipeline metrics for one process.
type Recorder struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	gateIssues    *prometheus.GaugeVec
	pipelines     *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// New builds a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of pipeline stage executions.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600},
		},
		[]string{"stage", "status"},
	)
	r.retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retry attempts scheduled, by classified error type.",
		},
		[]string{"error_type"},
	)
	r.gateIssues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_issues",
			Help:      "Issues reported by the most recent asset validation, by kind.",
		},
		[]string{"kind"},
	)
	r.pipelines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by result.",
		},
		[]string{"result"},
	)
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful pipeline run.",
	})

	r.registry.MustRegister(r.stageDuration, r.retries, r.gateIssues, r.pipelines, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveStage records one stage execution.
func (r *Recorder) ObserveStage(stage, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// IncRetry counts one scheduled retry.
func (r *Recorder) IncRetry(errorType string) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(errorType).Inc()
}

// SetGateIssues replaces the per-kind issue counts of the last validation.
func (r *Recorder) SetGateIssues(counts map[string]int) {
	if r == nil {
		return
	}
	r.gateIssues.Reset()
	for kind, n := range counts {
		r.gateIssues.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordPipeline counts a finished run. A "success" result also stamps the
// last-success gauge.
func (r *Recorder) RecordPipeline(result string, at time.Time) {
	if r == nil {
		return
	}
	r.pipelines.WithLabelValues(result).Inc()
	if result == "success" {
		r.lastSuccess.Set(float64(at.Unix()))
	}
}

// WriteTextfile writes the registry to path for the node-exporter textfile
// collector. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
