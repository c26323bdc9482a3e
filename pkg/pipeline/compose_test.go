package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/flint/pkg/config"
	"github.com/platinummonkey/flint/pkg/plugins"
)

const composeConfig = `
[common]
root = "src"
ignore = ["vendor", "dist"]

[rules.eslint]
strict = true

[rules.clippy]

[tests.jest]
coverage = 80

[ci.github]
branches = ["main"]

[report.junit]

[config.eslint]
semi = ["error", "always"]

[config.jest]
verbose = true
`

func mustParse(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(src))
	require.NoError(t, err)
	return cfg
}

func plugin(id string, kind plugins.Kind) *plugins.Plugin {
	return &plugins.Plugin{Manifest: plugins.Manifest{ID: id}, Kind: kind, Root: "/plugins/" + kind.Dir() + "/" + id}
}

func TestCompose(t *testing.T) {
	cfg := mustParse(t, composeConfig)

	tests := []struct {
		name       string
		plugin     *plugins.Plugin
		wantKey    string
		wantConfig bool
	}{
		{"lint with extra", plugin("eslint", plugins.KindLint), "strict", true},
		{"lint without extra", plugin("clippy", plugins.KindLint), "", false},
		{"test ignores extra", plugin("jest", plugins.KindTest), "coverage", false},
		{"ci", plugin("github", plugins.KindCI), "branches", false},
		{"report", plugin("junit", plugins.KindReport), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composed, err := Compose(cfg, tt.plugin)
			require.NoError(t, err)

			common, ok := composed["common"].(map[string]interface{})
			require.True(t, ok, "common must always be present")
			assert.Equal(t, "src", common["root"])

			if tt.wantKey != "" {
				assert.Contains(t, composed, tt.wantKey)
			}
			_, hasConfig := composed["config"]
			assert.Equal(t, tt.wantConfig, hasConfig)
		})
	}
}

func TestComposeMissingSection(t *testing.T) {
	cfg := mustParse(t, composeConfig)

	_, err := Compose(cfg, plugin("prettier", plugins.KindLint))
	require.Error(t, err)
	assert.True(t, plugins.IsConfigMissing(err))

	perr, ok := plugins.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "prettier", perr.PluginID)
	assert.Equal(t, plugins.StageCompose, perr.Stage)

	// present in another kind's section only
	_, err = Compose(cfg, plugin("eslint", plugins.KindTest))
	assert.True(t, plugins.IsConfigMissing(err))
}

func TestComposeNotATable(t *testing.T) {
	cfg := mustParse(t, "[rules]\neslint = 3\n")

	_, err := Compose(cfg, plugin("eslint", plugins.KindLint))
	require.Error(t, err)
	assert.True(t, plugins.IsConfigMissing(err))
	assert.Contains(t, err.Error(), "not a table")
}

func TestComposeIndependentCopies(t *testing.T) {
	cfg := mustParse(t, composeConfig+"\n[rules.prettier]\n")

	a, err := Compose(cfg, plugin("eslint", plugins.KindLint))
	require.NoError(t, err)
	b, err := Compose(cfg, plugin("prettier", plugins.KindLint))
	require.NoError(t, err)

	a["common"].(map[string]interface{})["root"] = "changed"
	a["common"].(map[string]interface{})["ignore"].([]interface{})[0] = "changed"
	a["config"].(map[string]interface{})["semi"] = "off"
	a["strict"] = false

	assert.Equal(t, "src", b["common"].(map[string]interface{})["root"])
	assert.Equal(t, "vendor", b["common"].(map[string]interface{})["ignore"].([]interface{})[0])
	assert.Equal(t, "src", cfg.Common["root"])
	assert.Equal(t, "vendor", cfg.Common["ignore"].([]interface{})[0])
	assert.Equal(t, true, cfg.Rules["eslint"].(map[string]interface{})["strict"])

	again, err := Compose(cfg, plugin("eslint", plugins.KindLint))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"error", "always"}, again["config"].(map[string]interface{})["semi"])
}

func TestSectionName(t *testing.T) {
	assert.Equal(t, "rules", SectionName(plugins.KindLint))
	assert.Equal(t, "tests", SectionName(plugins.KindTest))
	assert.Equal(t, "ci", SectionName(plugins.KindCI))
	assert.Equal(t, "report", SectionName(plugins.KindReport))
}

func TestCollectEnv(t *testing.T) {
	cfg := mustParse(t, `
[common]

[rules.eslint.env]
NODE_ENV = "test"
LEVEL = 2

[tests.jest.env]
NODE_ENV = "production"
CI = true

[tests.pytest]
`)

	active := []*plugins.Plugin{
		plugin("eslint", plugins.KindLint),
		plugin("jest", plugins.KindTest),
		plugin("pytest", plugins.KindTest),
		plugin("missing", plugins.KindTest),
	}

	env := CollectEnv(cfg, active)
	assert.Equal(t, map[string]string{
		"NODE_ENV": "test",
		"LEVEL":    "2",
		"CI":       "true",
	}, env)
}
