package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/dependencies"
	"github.com/platinummonkey/flint/pkg/logs"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/pipeline"
	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/scheduler"
)

// GenerateOptions controls the generate flow
type GenerateOptions struct {
	DryRun bool
}

// TestOptions selects which plugins the test flow runs. With neither set,
// both lint and test plugins run.
type TestOptions struct {
	Lint bool
	Test bool
}

// StartGenerate dispatches a generate job for every active lint, test and CI
// plugin and returns without waiting. When a CI plugin is active, the
// dependencies and environment of the other active plugins are collected
// first.
func (e *Engine) StartGenerate(ctx context.Context, cfg *config.Config, opts GenerateOptions) *scheduler.Scheduler {
	ctx, span := observability.StartSpan(ctx, "engine.generate", attribute.Bool("dry_run", opts.DryRun))
	defer span.End()

	e.warnUnknown(cfg)
	active := e.Active(cfg)
	targets := filterKinds(active, plugins.KindLint, plugins.KindTest, plugins.KindCI)

	schedOpts := scheduler.Options{DryRun: opts.DryRun}
	if len(filterKinds(targets, plugins.KindCI)) > 0 {
		schedOpts.CI = e.CIInputs(ctx, cfg, active)
	}

	s := e.newScheduler(ctx, cfg, schedOpts)
	if len(targets) == 0 {
		e.sink.Append(logs.Warn, "No active plugins to generate; add them to the rules, tests or ci sections of the config")
	}
	s.Dispatch(scheduler.Jobs(scheduler.JobGenerate, targets...)...)
	return s
}

// Generate runs the generate flow to completion
func (e *Engine) Generate(ctx context.Context, cfg *config.Config, opts GenerateOptions) error {
	s := e.StartGenerate(ctx, cfg, opts)
	return s.Close()
}

// StartTest dispatches a run job for every selected active lint and test
// plugin and returns without waiting. Every active report plugin reports
// each evaluated result.
func (e *Engine) StartTest(ctx context.Context, cfg *config.Config, opts TestOptions) *scheduler.Scheduler {
	ctx, span := observability.StartSpan(ctx, "engine.test",
		attribute.Bool("lint", opts.Lint),
		attribute.Bool("test", opts.Test),
	)
	defer span.End()

	e.warnUnknown(cfg)
	active := e.Active(cfg)

	var kinds []plugins.Kind
	switch {
	case opts.Lint && !opts.Test:
		kinds = []plugins.Kind{plugins.KindLint}
	case opts.Test && !opts.Lint:
		kinds = []plugins.Kind{plugins.KindTest}
	default:
		kinds = []plugins.Kind{plugins.KindLint, plugins.KindTest}
	}
	targets := filterKinds(active, kinds...)

	s := e.newScheduler(ctx, cfg, scheduler.Options{
		Reporters: filterKinds(active, plugins.KindReport),
	})
	if len(targets) == 0 {
		e.sink.Append(logs.Warn, "No active plugins to run")
	}
	s.Dispatch(scheduler.Jobs(scheduler.JobRun, targets...)...)
	return s
}

// Test runs the test flow to completion
func (e *Engine) Test(ctx context.Context, cfg *config.Config, opts TestOptions) error {
	s := e.StartTest(ctx, cfg, opts)
	return s.Close()
}

// Dependencies resolves the dependencies declared by every active non-CI
// plugin. Plugins whose declarations cannot be read are logged and left
// out.
func (e *Engine) Dependencies(ctx context.Context, cfg *config.Config) dependencies.Table {
	return e.resolve(ctx, nonCI(e.Active(cfg)))
}

// CIInputs computes what CI plugins receive: the resolved dependencies of
// the active non-CI plugins and the merged env tables of all active plugins
func (e *Engine) CIInputs(ctx context.Context, cfg *config.Config, active []*plugins.Plugin) *pipeline.CIInputs {
	return &pipeline.CIInputs{
		Dependencies: e.resolve(ctx, nonCI(active)),
		Env:          pipeline.CollectEnv(cfg, active),
	}
}

func (e *Engine) resolve(ctx context.Context, ps []*plugins.Plugin) dependencies.Table {
	table, errs := e.collector.Resolve(ctx, ps)
	for _, err := range errs {
		e.sink.AppendEntry(logs.Entry{
			Kind:     logs.Error,
			Message:  fmt.Sprintf("failed to read dependencies: %v", err.Cause),
			PluginID: err.PluginID,
			Stage:    string(err.Stage),
		})
	}
	return table
}

func nonCI(ps []*plugins.Plugin) []*plugins.Plugin {
	var out []*plugins.Plugin
	for _, p := range ps {
		if p.Kind != plugins.KindCI {
			out = append(out, p)
		}
	}
	return out
}
