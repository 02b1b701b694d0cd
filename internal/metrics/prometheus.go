// Package metrics exposes Prometheus collectors for training, prediction
// and upstream collection on a private registry.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ownerscope"

// Run results
const (
	ResultTrained = "trained"
	ResultNoOp    = "noop"
	ResultFailed  = "failed"
)

// Manager owns every collector. A nil *Manager is valid and records nothing.
type Manager struct {
	registry *prometheus.Registry

	trainingRuns     *prometheus.CounterVec
	targetsTrained   *prometheus.CounterVec
	targetsSkipped   *prometheus.CounterVec
	trainingSamples  prometheus.Counter
	trainingDuration prometheus.Histogram

	predictions         prometheus.Counter
	candidatesReturned  prometheus.Histogram
	upstreamPages       prometheus.Counter
	upstreamRecords     prometheus.Counter
	upstreamFetchErrors prometheus.Counter
}

// NewManager creates a Manager with its own registry
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Manager{
		registry: reg,
		trainingRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "Training runs by result",
		}, []string{"result"}),
		targetsTrained: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "targets_trained_total",
			Help:      "Groups and teams that produced a model",
		}, []string{"family"}),
		targetsSkipped: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "targets_skipped_total",
			Help:      "Groups and teams skipped, by reason",
		}, []string{"family", "reason"}),
		trainingSamples: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "samples_total",
			Help:      "Labelled samples used to fit models",
		}),
		trainingDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Wall time of training runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		predictions: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "requests_total",
			Help:      "Prediction requests served",
		}),
		candidatesReturned: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "candidates",
			Help:      "Candidates returned per prediction",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
		upstreamPages: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "pages_total",
			Help:      "Pull request pages fetched",
		}),
		upstreamRecords: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "records_total",
			Help:      "Change records collected",
		}),
		upstreamFetchErrors: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "fetch_errors_total",
			Help:      "Upstream fetches that failed after retries",
		}),
	}
}

// Registry returns the private registry
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun counts a finished training run
func (m *Manager) RecordRun(result string, samples int, d time.Duration) {
	if m == nil {
		return
	}
	m.trainingRuns.WithLabelValues(result).Inc()
	m.trainingSamples.Add(float64(samples))
	m.trainingDuration.Observe(d.Seconds())
}

// RecordTarget counts one group or team outcome. An empty reason means trained.
func (m *Manager) RecordTarget(family, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		m.targetsTrained.WithLabelValues(family).Inc()
		return
	}
	m.targetsSkipped.WithLabelValues(family, reason).Inc()
}

// RecordPrediction counts a served prediction
func (m *Manager) RecordPrediction(candidates int) {
	if m == nil {
		return
	}
	m.predictions.Inc()
	m.candidatesReturned.Observe(float64(candidates))
}

// RecordPage counts a fetched pull request page and its new records
func (m *Manager) RecordPage(records int) {
	if m == nil {
		return
	}
	m.upstreamPages.Inc()
	m.upstreamRecords.Add(float64(records))
}

// RecordFetchError counts a failed upstream fetch
func (m *Manager) RecordFetchError() {
	if m == nil {
		return
	}
	m.upstreamFetchErrors.Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
