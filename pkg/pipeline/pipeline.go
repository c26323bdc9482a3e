package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/dependencies"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/script"
)

// ErrWrongKind is returned when an operation is called on a plugin whose
// kind does not support it. It indicates a caller bug.
var ErrWrongKind = errors.New("operation not supported for plugin kind")

// Entry point names looked up in plugin scripts
const (
	fnValidate = "Validate"
	fnGenerate = "Generate"
	fnRun      = "Run"
	fnEval     = "Eval"
)

// CIInputs are the extra arguments handed to Generate of CI plugins
type CIInputs struct {
	Dependencies dependencies.Table
	Env          map[string]string
}

// Pipeline drives single plugins through their lifecycle. Every failure is
// returned as a *plugins.Error tagged with the plugin and stage.
type Pipeline struct {
	engine  script.Engine
	metrics *observability.Metrics
	log     *logrus.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMetrics records per-stage metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a pipeline that loads scripts with engine
func New(engine script.Engine, log *logrus.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	p := &Pipeline{engine: engine, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate validates p and returns the files its Generate entry point
// produces. ci must be set for CI plugins and is ignored otherwise.
func (pl *Pipeline) Generate(ctx context.Context, p *plugins.Plugin, cfg *config.Config, ci *CIInputs) (map[string]string, error) {
	if p.Kind == plugins.KindReport {
		return nil, fmt.Errorf("%w: generate on %s", ErrWrongKind, p)
	}

	composed, err := Compose(cfg, p)
	if err != nil {
		return nil, err
	}
	if err := pl.validate(ctx, p, composed); err != nil {
		return nil, err
	}

	args := []interface{}{composed}
	if p.Kind == plugins.KindCI {
		if ci == nil {
			ci = &CIInputs{}
		}
		deps := ci.Dependencies
		if deps == nil {
			deps = dependencies.Table{}
		}
		env := ci.Env
		if env == nil {
			env = map[string]string{}
		}
		args = append(args, deps, env)
	}

	var files map[string]string
	err = pl.stage(ctx, p, plugins.StageGenerate, func(ctx context.Context) error {
		raw, err := pl.call(ctx, p, plugins.StageGenerate, plugins.ScriptGenerate, fnGenerate, args...)
		if err != nil {
			return err
		}
		if files, err = decodeFiles(raw); err != nil {
			return plugins.NewError(p, plugins.StageGenerate, plugins.ErrOutputMalformed, err)
		}
		return nil
	})
	return files, err
}

// Run validates p and returns the command its Run entry point asks for.
// Spawning the command is up to the caller.
func (pl *Pipeline) Run(ctx context.Context, p *plugins.Plugin, cfg *config.Config) ([]string, error) {
	if p.Kind != plugins.KindLint && p.Kind != plugins.KindTest {
		return nil, fmt.Errorf("%w: run on %s", ErrWrongKind, p)
	}

	composed, err := Compose(cfg, p)
	if err != nil {
		return nil, err
	}
	if err := pl.validate(ctx, p, composed); err != nil {
		return nil, err
	}

	var argv []string
	err = pl.stage(ctx, p, plugins.StageRun, func(ctx context.Context) error {
		raw, err := pl.call(ctx, p, plugins.StageRun, plugins.ScriptRun, fnRun, composed)
		if err != nil {
			return err
		}
		if argv, err = decodeArgv(raw); err != nil {
			return plugins.NewError(p, plugins.StageRun, plugins.ErrOutputMalformed, err)
		}
		return nil
	})
	return argv, err
}

// Eval hands the output of the command returned by Run back to the plugin
// and decodes its verdict
func (pl *Pipeline) Eval(ctx context.Context, p *plugins.Plugin, out ProcessOutput) (EvalOutput, error) {
	if p.Kind != plugins.KindLint && p.Kind != plugins.KindTest {
		return EvalOutput{}, fmt.Errorf("%w: eval on %s", ErrWrongKind, p)
	}

	var result EvalOutput
	err := pl.stage(ctx, p, plugins.StageEval, func(ctx context.Context) error {
		raw, err := pl.call(ctx, p, plugins.StageEval, plugins.ScriptRun, fnEval, out.state())
		if err != nil {
			return err
		}
		if result, err = decodeEval(raw); err != nil {
			return plugins.NewError(p, plugins.StageEval, plugins.ErrOutputMalformed, err)
		}
		return nil
	})
	return result, err
}

// Report runs report plugin p over the result of pluginID and returns the
// files it produces
func (pl *Pipeline) Report(ctx context.Context, p *plugins.Plugin, cfg *config.Config, result EvalOutput, pluginID string) (map[string]string, error) {
	if p.Kind != plugins.KindReport {
		return nil, fmt.Errorf("%w: report on %s", ErrWrongKind, p)
	}

	composed, err := Compose(cfg, p)
	if err != nil {
		return nil, err
	}
	if err := pl.validate(ctx, p, composed); err != nil {
		return nil, err
	}

	state := map[string]interface{}{
		"config":    composed,
		"output":    result.Map(),
		"plugin_id": pluginID,
	}

	var files map[string]string
	err = pl.stage(ctx, p, plugins.StageReport, func(ctx context.Context) error {
		raw, err := pl.call(ctx, p, plugins.StageReport, plugins.ScriptRun, fnRun, state)
		if err != nil {
			return err
		}
		if files, err = decodeFiles(raw); err != nil {
			return plugins.NewError(p, plugins.StageReport, plugins.ErrOutputMalformed, err)
		}
		return nil
	})
	return files, err
}

// validate calls Validate. A false result is an explicit rejection and is
// reported apart from script failures.
func (pl *Pipeline) validate(ctx context.Context, p *plugins.Plugin, composed map[string]interface{}) error {
	return pl.stage(ctx, p, plugins.StageValidate, func(ctx context.Context) error {
		raw, err := pl.call(ctx, p, plugins.StageValidate, plugins.ScriptValidate, fnValidate, composed)
		if err != nil {
			return err
		}

		valid, err := decodeValid(raw)
		if err != nil {
			return plugins.NewError(p, plugins.StageValidate, plugins.ErrScript, err)
		}
		if !valid {
			return plugins.Errorf(p, plugins.StageValidate, plugins.ErrValidationFailed,
				"Validate returned false")
		}
		return nil
	})
}

// call loads file from the plugin directory into a fresh interpreter and
// calls fn. Load and call failures are script errors.
func (pl *Pipeline) call(ctx context.Context, p *plugins.Plugin, stage plugins.Stage, file, fn string, args ...interface{}) (interface{}, error) {
	handle, err := pl.engine.Load(ctx, p.Script(file))
	if err != nil {
		return nil, plugins.NewError(p, stage, plugins.ErrScript, err)
	}
	defer handle.Close()

	f, ok := handle.Function(fn)
	if !ok {
		return nil, plugins.Errorf(p, stage, plugins.ErrScript,
			"%s does not define %s", filepath.Base(p.Script(file)), fn)
	}

	raw, err := f.Call(ctx, args...)
	if err != nil {
		return nil, plugins.NewError(p, stage, plugins.ErrScript, err)
	}
	return raw, nil
}

// stage wraps one lifecycle step in a span and records its duration
func (pl *Pipeline) stage(ctx context.Context, p *plugins.Plugin, stage plugins.Stage, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "pipeline."+string(stage),
		attribute.String("plugin.id", p.ID()),
		attribute.String("plugin.kind", p.Kind.String()),
	)

	start := time.Now()
	err := fn(ctx)
	pl.metrics.RecordStage(string(stage), plugins.ErrorKind(err), time.Since(start))
	observability.EndSpan(span, err)

	if err != nil {
		pl.log.WithFields(logrus.Fields{
			"plugin": p.ID(),
			"kind":   p.Kind.String(),
			"stage":  stage,
		}).Debug(err)
	}
	return err
}
