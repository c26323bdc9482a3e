package dependencies

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/script"
)

// DefaultConcurrency bounds parallel Dependencies calls
const DefaultConcurrency = 8

// Collector gathers dependency declarations from plugins
type Collector struct {
	engine      script.Engine
	concurrency int
	metrics     *observability.Metrics
	log         *logrus.Logger
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithConcurrency bounds the number of plugins queried at once
func WithConcurrency(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMetrics records conflict metrics
func WithMetrics(m *observability.Metrics) CollectorOption {
	return func(c *Collector) {
		c.metrics = m
	}
}

// NewCollector creates a dependency collector
func NewCollector(engine script.Engine, log *logrus.Logger, opts ...CollectorOption) *Collector {
	if log == nil {
		log = logrus.New()
	}
	c := &Collector{
		engine:      engine,
		concurrency: DefaultConcurrency,
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect calls the optional Dependencies entry point of every plugin and
// concatenates the declarations per manager in plugin order. A plugin
// without Dependencies contributes nothing. A plugin whose call fails
// contributes nothing and is reported in the returned errors.
func (c *Collector) Collect(ctx context.Context, ps []*plugins.Plugin) (Table, []*plugins.Error) {
	results := make([]Table, len(ps))
	errs := make([]*plugins.Error, len(ps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, p := range ps {
		g.Go(func() error {
			results[i], errs[i] = c.declared(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	raw := make(Table)
	var failed []*plugins.Error
	for i := range ps {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		raw.Merge(results[i])
	}

	return raw, failed
}

// Resolve collects and resolves the dependencies of ps. Unresolvable
// conflicts are logged and fall back to the first-seen declaration.
func (c *Collector) Resolve(ctx context.Context, ps []*plugins.Plugin) (Table, []*plugins.Error) {
	ctx, span := observability.StartSpan(ctx, "dependencies.resolve")
	defer span.End()

	raw, errs := c.Collect(ctx, ps)
	resolved, diags := ResolveWithDiagnostics(raw)

	for _, d := range diags {
		c.log.WithField("manager", d.Manager).Warn(d.Error())
	}
	for manager, n := range Conflicts(raw, resolved) {
		for i := 0; i < n; i++ {
			c.metrics.RecordDependencyConflict(manager)
		}
	}

	c.log.Debugf("Resolved %d dependencies (%d declared) from %d plugins", resolved.Len(), raw.Len(), len(ps))
	return resolved, errs
}

func (c *Collector) declared(ctx context.Context, p *plugins.Plugin) (Table, *plugins.Error) {
	handle, err := c.engine.Load(ctx, p.Script(plugins.ScriptDetails))
	if err != nil {
		return nil, plugins.NewError(p, plugins.StageDependencies, plugins.ErrScript, err)
	}
	defer handle.Close()

	fn, ok := handle.Function("Dependencies")
	if !ok {
		return Table{}, nil
	}

	raw, err := fn.Call(ctx)
	if err != nil {
		return nil, plugins.NewError(p, plugins.StageDependencies, plugins.ErrScript, err)
	}

	table, err := decodeTable(raw)
	if err != nil {
		return nil, plugins.NewError(p, plugins.StageDependencies, plugins.ErrOutputMalformed, err)
	}
	return table, nil
}

// decodeTable converts a Dependencies result: a table of manager name to a
// list of {name, version} tables. nil means no dependencies.
func decodeTable(raw interface{}) (Table, error) {
	if raw == nil {
		return Table{}, nil
	}

	var table Table
	if err := script.Decode(raw, &table); err != nil {
		return nil, err
	}

	for manager, deps := range table {
		for i, dep := range deps {
			if dep.Name == "" {
				return nil, fmt.Errorf("%s[%d]: name is required", manager, i)
			}
			if dep.Version == "" {
				return nil, fmt.Errorf("%s[%d] (%s): version is required", manager, i, dep.Name)
			}
		}
	}
	return table, nil
}
