package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RunMetrics describe the outcome of a single reporter run. They live in their own registry so that only run
// related metrics are pushed.
type RunMetrics struct {
	registry *prometheus.Registry

	runDuration      prometheus.Gauge
	recordsPublished prometheus.Gauge
	lastSuccess      prometheus.Gauge
	runFailed        *prometheus.GaugeVec
}

// NewRunMetrics creates the run metrics. The failure gauge is initialized with 0 for all given stages.
func NewRunMetrics(namespace string, stages ...string) *RunMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &RunMetrics{
		registry: registry,
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run in seconds",
		}),
		recordsPublished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_published",
			Help:      "Number of partition lag records written to the metrics store by the last run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful run",
		}),
		runFailed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_failed",
			Help:      "Reports 1 for the stage the last run failed in, otherwise 0",
		}, []string{"stage"}),
	}
	for _, stage := range stages {
		m.runFailed.WithLabelValues(stage).Set(0)
	}

	return m
}

// Registry returns the registry the run metrics are registered in. Further collectors, such as the log message
// counters, can be added to it so that they are pushed as well.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *RunMetrics) ObserveSuccess(duration time.Duration, recordCount int) {
	m.runDuration.Set(duration.Seconds())
	m.recordsPublished.Set(float64(recordCount))
	m.lastSuccess.SetToCurrentTime()
}

func (m *RunMetrics) ObserveFailure(duration time.Duration, stage string) {
	m.runDuration.Set(duration.Seconds())
	m.recordsPublished.Set(0)
	m.runFailed.WithLabelValues(stage).Set(1)
}
