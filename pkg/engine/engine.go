package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/dependencies"
	"github.com/platinummonkey/flint/pkg/logs"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/pipeline"
	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/scheduler"
	"github.com/platinummonkey/flint/pkg/script"
)

// Engine owns the plugin registry for the life of the process and runs the
// generate and test flows against it
type Engine struct {
	settings  config.Settings
	registry  *plugins.Registry
	pipeline  *pipeline.Pipeline
	collector *dependencies.Collector
	sink      *logs.Sink
	metrics   *observability.Metrics
	log       *logrus.Logger
}

// New discovers plugins under settings.PluginsDir and builds an engine.
// Plugins that fail discovery are logged to sink and skipped; the returned
// error is only set when the script runtime cannot be created.
func New(ctx context.Context, settings config.Settings, sink *logs.Sink, log *logrus.Logger) (*Engine, error) {
	if log == nil {
		log = logrus.New()
	}
	if sink == nil {
		sink = logs.NewSink(nil, log)
	}

	runtime, err := script.NewLuaEngine(
		script.WithCacheSize(settings.ScriptCacheSize),
		script.WithLogger(log),
		script.WithLogFunc(func(level, message string) {
			sink.Append(logs.ParseKind(level), message)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script engine: %w", err)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	loader := plugins.NewLoader(runtime, log, plugins.WithSink(sink), plugins.WithMetrics(metrics))
	registry, _ := loader.Discover(ctx, settings.PluginsDir)

	return &Engine{
		settings:  settings,
		registry:  registry,
		pipeline:  pipeline.New(runtime, log, pipeline.WithMetrics(metrics)),
		collector: dependencies.NewCollector(runtime, log, dependencies.WithMetrics(metrics)),
		sink:      sink,
		metrics:   metrics,
		log:       log,
	}, nil
}

// Registry returns the plugins discovered at startup
func (e *Engine) Registry() *plugins.Registry {
	return e.registry
}

// Sink returns the event log shared by all jobs
func (e *Engine) Sink() *logs.Sink {
	return e.sink
}

// Metrics returns the engine's metrics
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// Active returns the plugins enabled by cfg, in registry order
func (e *Engine) Active(cfg *config.Config) []*plugins.Plugin {
	return e.registry.ListActive(cfg)
}

// warnUnknown logs a warning for every configured plugin id that matches no
// discovered plugin
func (e *Engine) warnUnknown(cfg *config.Config) {
	known := make(map[string]bool, e.registry.Len())
	for _, p := range e.registry.All() {
		known[p.ID()] = true
	}

	ids := cfg.PluginIDs()
	sort.Strings(ids)
	for _, id := range ids {
		if !known[id] {
			e.sink.Appendf(logs.Warn, "Plugin %s is configured but not installed in %s", id, e.settings.PluginsDir)
		}
	}
}

// WriteMetrics writes metrics to the configured textfile, if any
func (e *Engine) WriteMetrics() error {
	return e.metrics.WriteTextfile(e.settings.MetricsFile)
}

func (e *Engine) newScheduler(ctx context.Context, cfg *config.Config, opts scheduler.Options) *scheduler.Scheduler {
	opts.Workers = e.settings.Workers
	opts.OutputDir = e.settings.OutputDir
	opts.ReportsDir = e.settings.ReportsDir
	opts.JobTimeout = e.settings.JobTimeout
	opts.Metrics = e.metrics
	return scheduler.New(ctx, e.pipeline, cfg, e.sink, e.log, opts)
}

func filterKinds(ps []*plugins.Plugin, kinds ...plugins.Kind) []*plugins.Plugin {
	var out []*plugins.Plugin
	for _, p := range ps {
		for _, k := range kinds {
			if p.Kind == k {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
