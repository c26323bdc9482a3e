package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Discovery metrics
	PluginsDiscovered    *prometheus.GaugeVec
	DiscoveryErrorsTotal *prometheus.CounterVec

	// Job metrics
	JobsTotal   *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec

	// Lifecycle stage metrics
	StageDuration    *prometheus.HistogramVec
	StageErrorsTotal *prometheus.CounterVec

	// Output metrics
	FilesWrittenTotal *prometheus.CounterVec

	// Dependency metrics
	DependencyConflictsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		PluginsDiscovered: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flint_plugins_discovered",
				Help: "Number of valid plugins found during discovery",
			},
			[]string{"kind"},
		),
		DiscoveryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flint_discovery_errors_total",
				Help: "Total number of plugin directories skipped during discovery",
			},
			[]string{"kind"},
		),

		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flint_jobs_total",
				Help: "Total number of completed plugin jobs",
			},
			[]string{"job", "status"},
		),
		JobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flint_job_duration_seconds",
				Help:    "Plugin job duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flint_stage_duration_seconds",
				Help:    "Plugin lifecycle stage duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"stage"},
		),
		StageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flint_stage_errors_total",
				Help: "Total number of failed plugin lifecycle stages",
			},
			[]string{"stage", "error"},
		),

		FilesWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flint_files_written_total",
				Help: "Total number of files written by generate and report jobs",
			},
			[]string{"source"},
		),

		DependencyConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flint_dependency_conflicts_total",
				Help: "Total number of duplicate dependency declarations resolved",
			},
			[]string{"manager"},
		),
	}

	registry.MustRegister(
		m.PluginsDiscovered,
		m.DiscoveryErrorsTotal,
		m.JobsTotal,
		m.JobDuration,
		m.StageDuration,
		m.StageErrorsTotal,
		m.FilesWrittenTotal,
		m.DependencyConflictsTotal,
	)

	return m
}

// SetPluginsDiscovered records the number of valid plugins of a kind
func (m *Metrics) SetPluginsDiscovered(kind string, n int) {
	if m == nil {
		return
	}
	m.PluginsDiscovered.WithLabelValues(kind).Set(float64(n))
}

// RecordDiscoveryError counts a skipped plugin directory
func (m *Metrics) RecordDiscoveryError(kind string) {
	if m == nil {
		return
	}
	m.DiscoveryErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordJob records a finished job
func (m *Metrics) RecordJob(job, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(job, status).Inc()
	m.JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordStage records a lifecycle stage. errKind is empty on success.
func (m *Metrics) RecordStage(stage, errKind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if errKind != "" {
		m.StageErrorsTotal.WithLabelValues(stage, errKind).Inc()
	}
}

// RecordFileWritten counts a file written to disk
func (m *Metrics) RecordFileWritten(source string) {
	if m == nil {
		return
	}
	m.FilesWrittenTotal.WithLabelValues(source).Inc()
}

// RecordDependencyConflict counts a duplicate declaration that was collapsed
func (m *Metrics) RecordDependencyConflict(manager string) {
	if m == nil {
		return
	}
	m.DependencyConflictsTotal.WithLabelValues(manager).Inc()
}

// WriteTextfile writes the registry in the textfile collector format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
