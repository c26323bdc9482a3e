package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/flint/pkg/dependencies"
	"github.com/platinummonkey/flint/pkg/observability"
	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/plugins/plugintest"
	"github.com/platinummonkey/flint/pkg/script"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	log := quietLogger()
	engine, err := script.NewLuaEngine(script.WithLogger(log))
	require.NoError(t, err)
	return New(engine, log, opts...)
}

// writePlugin writes a plugin and returns it without going through discovery
func writePlugin(t *testing.T, kind plugins.Kind, id string, scripts map[string]string) *plugins.Plugin {
	t.Helper()
	if _, ok := scripts[plugins.ScriptDetails]; !ok {
		scripts[plugins.ScriptDetails] = plugintest.Details(id)
	}
	dir := plugintest.Write(t, t.TempDir(), kind.Dir(), id, scripts)
	return &plugins.Plugin{
		Manifest: plugins.Manifest{ID: id, Version: "1.0.0", Author: "flint"},
		Kind:     kind,
		Root:     dir,
	}
}

func requireStage(t *testing.T, err error, id string, stage plugins.Stage) {
	t.Helper()
	perr, ok := plugins.AsError(err)
	require.True(t, ok, "expected a plugin error, got %v", err)
	assert.Equal(t, id, perr.PluginID)
	assert.Equal(t, stage, perr.Stage)
}

func TestGenerate(t *testing.T) {
	p := writePlugin(t, plugins.KindLint, "eslint", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptGenerate: `
function Generate(config)
	return {
		["eslintrc.json"] = "{}",
		["root.txt"] = config.common.root .. ":" .. config.config.semi,
	}
end
`,
	})
	cfg := mustParse(t, "[common]\nroot = \"src\"\n[rules.eslint]\n[config.eslint]\nsemi = \"always\"\n")

	files, err := newTestPipeline(t).Generate(context.Background(), p, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"eslintrc.json": "{}",
		"root.txt":      "src:always",
	}, files)
}

func TestGenerateFailures(t *testing.T) {
	cfg := mustParse(t, "[rules.eslint]\n")

	tests := []struct {
		name     string
		validate string
		generate string
		stage    plugins.Stage
		check    func(error) bool
	}{
		{
			name:     "validation rejected",
			validate: `function Validate(config) return false end`,
			generate: `function Generate(config) return {} end`,
			stage:    plugins.StageValidate,
			check:    plugins.IsValidationFailed,
		},
		{
			name:     "validate returns non-boolean",
			validate: `function Validate(config) return "yes" end`,
			generate: `function Generate(config) return {} end`,
			stage:    plugins.StageValidate,
			check:    plugins.IsScript,
		},
		{
			name:     "validate raises",
			validate: `function Validate(config) error("bad config") end`,
			generate: `function Generate(config) return {} end`,
			stage:    plugins.StageValidate,
			check:    plugins.IsScript,
		},
		{
			name:     "validate syntax error",
			validate: `function Validate(config) return true`,
			generate: `function Generate(config) return {} end`,
			stage:    plugins.StageValidate,
			check:    plugins.IsScript,
		},
		{
			name:     "generate missing",
			validate: plugintest.AlwaysValid,
			generate: `local x = 1`,
			stage:    plugins.StageGenerate,
			check:    plugins.IsScript,
		},
		{
			name:     "generate raises",
			validate: plugintest.AlwaysValid,
			generate: `function Generate(config) error("boom") end`,
			stage:    plugins.StageGenerate,
			check:    plugins.IsScript,
		},
		{
			name:     "generate returns a list",
			validate: plugintest.AlwaysValid,
			generate: `function Generate(config) return { "a.txt" } end`,
			stage:    plugins.StageGenerate,
			check:    plugins.IsOutputMalformed,
		},
		{
			name:     "generate returns nil",
			validate: plugintest.AlwaysValid,
			generate: `function Generate(config) end`,
			stage:    plugins.StageGenerate,
			check:    plugins.IsOutputMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writePlugin(t, plugins.KindLint, "eslint", map[string]string{
				plugins.ScriptValidate: tt.validate,
				plugins.ScriptGenerate: tt.generate,
			})

			_, err := newTestPipeline(t).Generate(context.Background(), p, cfg, nil)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			requireStage(t, err, "eslint", tt.stage)
		})
	}
}

func TestGenerateConfigMissing(t *testing.T) {
	p := writePlugin(t, plugins.KindLint, "eslint", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptGenerate: `function Generate(config) return {} end`,
	})

	_, err := newTestPipeline(t).Generate(context.Background(), p, mustParse(t, ""), nil)
	require.Error(t, err)
	assert.True(t, plugins.IsConfigMissing(err))
	requireStage(t, err, "eslint", plugins.StageCompose)
}

func TestGenerateCI(t *testing.T) {
	p := writePlugin(t, plugins.KindCI, "github", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptGenerate: `
function Generate(config, deps, env)
	local n = 0
	for _, d in ipairs(deps.cargo) do n = n + 1 end
	local first = deps.cargo[1]
	return { ["ci.txt"] = first.name .. "@" .. first.version .. " " .. n .. " " .. env.RUST_LOG }
end
`,
	})
	cfg := mustParse(t, "[ci.github]\n")

	resolved := dependencies.Resolve(dependencies.Table{
		"cargo": {
			{Name: "serde", Version: "1.0"},
			{Name: "serde", Version: "^1.2"},
		},
	})
	files, err := newTestPipeline(t).Generate(context.Background(), p, cfg, &CIInputs{
		Dependencies: resolved,
		Env:          map[string]string{"RUST_LOG": "debug"},
	})
	require.NoError(t, err)
	assert.Equal(t, "serde@1.0 1 debug", files["ci.txt"])
}

func TestGenerateCIWithoutInputs(t *testing.T) {
	p := writePlugin(t, plugins.KindCI, "github", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptGenerate: `
function Generate(config, deps, env)
	if deps == nil or env == nil then error("missing inputs") end
	return {}
end
`,
	})

	files, err := newTestPipeline(t).Generate(context.Background(), p, mustParse(t, "[ci.github]\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGenerateWrongKind(t *testing.T) {
	p := plugin("junit", plugins.KindReport)
	_, err := newTestPipeline(t).Generate(context.Background(), p, mustParse(t, ""), nil)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestRunAndEval(t *testing.T) {
	p := writePlugin(t, plugins.KindLint, "eslint", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptGenerate: `function Generate(config) return {} end`,
		plugins.ScriptRun: `
function Run(config)
	return { "eslint", "--format", config.format }
end

function Eval(state)
	local results = {}
	if not state.success then
		results[1] = {
			file_name = "index.js",
			line_no = 1,
			success = false,
			error_message = state.stderr,
		}
	end
	return { total_errors = #results, lint_results = results }
end
`,
	})
	cfg := mustParse(t, "[rules.eslint]\nformat = \"json\"\n")
	pl := newTestPipeline(t)

	argv, err := pl.Run(context.Background(), p, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"eslint", "--format", "json"}, argv)

	out, err := pl.Eval(context.Background(), p, ProcessOutput{ExitCode: 0, Success: true})
	require.NoError(t, err)
	require.NotNil(t, out.Lint)
	assert.True(t, out.Passed())
	assert.Empty(t, out.Lint.Results)

	out, err = pl.Eval(context.Background(), p, ProcessOutput{Stderr: []byte("semi"), ExitCode: 1})
	require.NoError(t, err)
	require.NotNil(t, out.Lint)
	assert.Equal(t, uint32(1), out.Lint.TotalErrors)
	require.Len(t, out.Lint.Results, 1)
	assert.Equal(t, "semi", *out.Lint.Results[0].ErrorMessage)
}

func TestRunValidatesFirst(t *testing.T) {
	p := writePlugin(t, plugins.KindTest, "jest", map[string]string{
		plugins.ScriptValidate: `function Validate(config) return false end`,
		plugins.ScriptRun:      `function Run(config) error("must not run") end`,
	})

	_, err := newTestPipeline(t).Run(context.Background(), p, mustParse(t, "[tests.jest]\n"))
	assert.True(t, plugins.IsValidationFailed(err))
}

func TestRunMalformed(t *testing.T) {
	p := writePlugin(t, plugins.KindTest, "jest", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun:      `function Run(config) return {} end`,
	})

	_, err := newTestPipeline(t).Run(context.Background(), p, mustParse(t, "[tests.jest]\n"))
	assert.True(t, plugins.IsOutputMalformed(err))
	requireStage(t, err, "jest", plugins.StageRun)
}

func TestEvalTestShape(t *testing.T) {
	p := writePlugin(t, plugins.KindTest, "jest", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun: `
function Eval(state)
	return {
		tests_passed = 3,
		total_tests = 4,
		passing_percentage = 75.0,
		test_results = {
			{ file_name = "a.test.js", success = true, data = { duration = 12 } },
		},
		exit = state.exit_code,
	}
end
`,
	})

	out, err := newTestPipeline(t).Eval(context.Background(), p, ProcessOutput{ExitCode: 1})
	require.NoError(t, err)
	require.NotNil(t, out.Test)
	assert.Equal(t, uint32(3), out.Test.TestsPassed)
	assert.Equal(t, 75.0, out.Test.PassingPercentage)
	require.Len(t, out.Test.Results, 1)
	assert.Equal(t, int64(12), out.Test.Results[0].Data["duration"])
}

func TestEvalUnknownShape(t *testing.T) {
	p := writePlugin(t, plugins.KindTest, "jest", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun:      `function Eval(state) return { passed = true } end`,
	})

	_, err := newTestPipeline(t).Eval(context.Background(), p, ProcessOutput{})
	assert.True(t, plugins.IsOutputMalformed(err))
	requireStage(t, err, "jest", plugins.StageEval)
}

func TestEvalSignalledProcess(t *testing.T) {
	p := writePlugin(t, plugins.KindTest, "jest", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun: `
function Eval(state)
	if state.status ~= nil then error("status should be nil") end
	return { tests_passed = 0, total_tests = 0, passing_percentage = 0, test_results = {} }
end
`,
	})

	out, err := newTestPipeline(t).Eval(context.Background(), p, ProcessOutput{ExitCode: -1})
	require.NoError(t, err)
	assert.NotNil(t, out.Test)
}

func TestReport(t *testing.T) {
	p := writePlugin(t, plugins.KindReport, "summary", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun: `
function Run(state)
	local out = state.output
	return {
		[state.plugin_id .. ".txt"] = out.kind .. " " .. out.total_errors .. " " .. state.config.title,
	}
end
`,
	})
	cfg := mustParse(t, "[report.summary]\ntitle = \"ok\"\n")

	files, err := newTestPipeline(t).Report(context.Background(), p, cfg,
		EvalOutput{Lint: &LintOutput{TotalErrors: 2}}, "eslint")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"eslint.txt": "lint 2 ok"}, files)
}

func TestReportWithEvalHelpers(t *testing.T) {
	p := writePlugin(t, plugins.KindReport, "summary", map[string]string{
		plugins.ScriptValidate: plugintest.AlwaysValid,
		plugins.ScriptRun: `
local eval = require("eval")

function Run(state)
	local out = eval.get_output(state.output)
	if eval.test_type(state.output) == eval.lint then
		return { ["summary.txt"] = "lint errors: " .. out.total_errors }
	end
	return { ["summary.txt"] = "tests: " .. out.tests_passed .. "/" .. out.total_tests }
end
`,
	})
	cfg := mustParse(t, "[report.summary]\n")
	pl := newTestPipeline(t)

	files, err := pl.Report(context.Background(), p, cfg, EvalOutput{Lint: &LintOutput{TotalErrors: 3}}, "eslint")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"summary.txt": "lint errors: 3"}, files)

	files, err = pl.Report(context.Background(), p, cfg,
		EvalOutput{Test: &TestOutput{TestsPassed: 4, TotalTests: 5, PassingPercentage: 80}}, "jest")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"summary.txt": "tests: 4/5"}, files)
}

func TestReportWrongKind(t *testing.T) {
	_, err := newTestPipeline(t).Report(context.Background(), plugin("eslint", plugins.KindLint),
		mustParse(t, "[rules.eslint]\n"), EvalOutput{}, "eslint")
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestStageMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	p := writePlugin(t, plugins.KindLint, "eslint", map[string]string{
		plugins.ScriptValidate: `function Validate(config) return false end`,
		plugins.ScriptGenerate: `function Generate(config) return {} end`,
	})

	_, err := newTestPipeline(t, WithMetrics(metrics)).Generate(context.Background(), p, mustParse(t, "[rules.eslint]\n"), nil)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageErrorsTotal.WithLabelValues("validate", "validation_failed")))
}

type fakeEngine struct {
	err error
}

func (f fakeEngine) Load(ctx context.Context, paths ...string) (script.Handle, error) {
	return nil, f.err
}

func TestLoadFailureIsScriptError(t *testing.T) {
	loadErr := errors.New("disk on fire")
	pl := New(fakeEngine{err: loadErr}, quietLogger())
	p := &plugins.Plugin{Manifest: plugins.Manifest{ID: "eslint"}, Kind: plugins.KindLint, Root: filepath.Join(t.TempDir(), "eslint")}

	_, err := pl.Generate(context.Background(), p, mustParse(t, "[rules.eslint]\n"), nil)
	require.Error(t, err)
	assert.True(t, plugins.IsScript(err))
	assert.ErrorIs(t, err, loadErr)
	requireStage(t, err, "eslint", plugins.StageValidate)
}
