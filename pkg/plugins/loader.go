package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/flint/pkg/logs"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/script"
)

// Loader discovers plugins from a plugins root directory laid out as
// <root>/<kind>/<plugin>/{details,generate,run,validate}.lua
type Loader struct {
	engine  script.Engine
	sink    *logs.Sink
	metrics *observability.Metrics
	log     *logrus.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithSink records discovery events in sink
func WithSink(sink *logs.Sink) LoaderOption {
	return func(l *Loader) {
		l.sink = sink
	}
}

// WithMetrics records discovery metrics
func WithMetrics(m *observability.Metrics) LoaderOption {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a new plugin loader
func NewLoader(engine script.Engine, log *logrus.Logger, opts ...LoaderOption) *Loader {
	if log == nil {
		log = logrus.New()
	}

	l := &Loader{
		engine: engine,
		log:    log,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.sink == nil {
		l.sink = logs.NewSink(nil, log)
	}
	return l
}

// Discover scans the plugins root for the given kinds (all kinds when none
// are given) and builds the registry. Directories that cannot be loaded are
// skipped; each one is logged once and returned as a discovery error.
func (l *Loader) Discover(ctx context.Context, root string, kinds ...Kind) (*Registry, []*Error) {
	if len(kinds) == 0 {
		kinds = Kinds
	}

	var (
		found []*Plugin
		errs  []*Error
	)

	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			errs = append(errs, l.skip(&Plugin{Kind: kind, Root: root}, err))
			break
		}

		plugins, kindErrs := l.discoverKind(ctx, root, kind)
		found = append(found, plugins...)
		errs = append(errs, kindErrs...)
		l.metrics.SetPluginsDiscovered(kind.String(), len(plugins))
	}

	registry := NewRegistry(found...)
	l.log.Debugf("Discovered %d plugins under %s (%d skipped)", registry.Len(), root, len(errs))
	return registry, errs
}

func (l *Loader) discoverKind(ctx context.Context, root string, kind Kind) ([]*Plugin, []*Error) {
	dir := filepath.Join(root, kind.Dir())

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		l.sink.AppendEntry(logs.Entry{
			Kind:    logs.Warn,
			Message: fmt.Sprintf("%s directory does not exist: %s", kind, dir),
			Stage:   string(StageDiscover),
		})
		return nil, nil
	}

	// ReadDir sorts by name, so the lexicographically first directory wins
	// when two plugins of a kind share an id
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []*Error{l.skip(&Plugin{Manifest: Manifest{ID: kind.Dir()}, Kind: kind, Root: dir}, err)}
	}

	var (
		plugins []*Plugin
		errs    []*Error
		owners  = make(map[string]string)
	)

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isDir(path) {
			continue
		}

		plugin, err := l.loadPlugin(ctx, kind, path)
		if err != nil {
			errs = append(errs, l.skip(plugin, err))
			continue
		}

		if owner, dup := owners[plugin.ID()]; dup {
			errs = append(errs, l.skip(plugin, fmt.Errorf("duplicate plugin id %q already provided by %s", plugin.ID(), owner)))
			continue
		}
		owners[plugin.ID()] = path

		l.log.Debugf("Loaded %s plugin %s v%s from %s", kind, plugin.ID(), plugin.Manifest.Version, path)
		plugins = append(plugins, plugin)
	}

	return plugins, errs
}

// loadPlugin returns a non-nil plugin even on failure so the error can be
// tagged with the best id available
func (l *Loader) loadPlugin(ctx context.Context, kind Kind, path string) (*Plugin, error) {
	plugin := &Plugin{
		Manifest: Manifest{ID: filepath.Base(path)},
		Kind:     kind,
		Root:     path,
	}

	details := plugin.Script(ScriptDetails)
	if _, err := os.Stat(details); err != nil {
		return plugin, fmt.Errorf("missing required file: %s%s", ScriptDetails, ScriptExt)
	}

	manifest, err := l.callDetails(ctx, details)
	if err != nil {
		return plugin, err
	}

	issues := ValidateManifest(&manifest)
	if manifest.ID != "" {
		plugin.Manifest.ID = manifest.ID
	}
	if HasBlockingErrors(issues) {
		return plugin, fmt.Errorf("invalid manifest: %s", joinIssues(issues, SeverityError))
	}
	for _, issue := range issues {
		l.sink.AppendEntry(logs.Entry{
			Kind:     logs.Warn,
			Message:  issue.String(),
			PluginID: manifest.ID,
			Stage:    string(StageDiscover),
		})
	}

	plugin.Manifest = manifest
	if err := ValidateStructure(plugin); err != nil {
		return plugin, err
	}

	return plugin, nil
}

func (l *Loader) callDetails(ctx context.Context, path string) (Manifest, error) {
	handle, err := l.engine.Load(ctx, path)
	if err != nil {
		return Manifest{}, err
	}
	defer handle.Close()

	fn, ok := handle.Function("Details")
	if !ok {
		return Manifest{}, fmt.Errorf("%s does not define a Details function", filepath.Base(path))
	}

	raw, err := fn.Call(ctx)
	if err != nil {
		return Manifest{}, err
	}

	return DecodeManifest(raw)
}

func (l *Loader) skip(plugin *Plugin, cause error) *Error {
	e := NewError(plugin, StageDiscover, ErrDiscovery, cause)

	l.sink.AppendEntry(logs.Entry{
		Kind:     logs.Error,
		Message:  fmt.Sprintf("skipping plugin at %s: %v", plugin.Root, cause),
		PluginID: e.PluginID,
		Stage:    string(StageDiscover),
	})
	l.metrics.RecordDiscoveryError(plugin.Kind.String())

	return e
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func joinIssues(issues []ValidationError, severity string) string {
	var parts []string
	for _, issue := range issues {
		if issue.Severity == severity {
			parts = append(parts, issue.String())
		}
	}
	return strings.Join(parts, "; ")
}
