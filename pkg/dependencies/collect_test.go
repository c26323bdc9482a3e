package dependencies

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/flint/pkg/plugins"
	"github.com/platinummonkey/flint/pkg/plugins/plugintest"
	"github.com/platinummonkey/flint/pkg/script"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	engine, err := script.NewLuaEngine(script.WithLogger(log))
	require.NoError(t, err)
	return NewCollector(engine, log, WithConcurrency(2))
}

func pluginWithDetails(t *testing.T, root, id, body string) *plugins.Plugin {
	t.Helper()
	dir := plugintest.Write(t, root, "lint", id, map[string]string{
		plugins.ScriptDetails: plugintest.Details(id) + body,
	})
	return &plugins.Plugin{
		Manifest: plugins.Manifest{ID: id},
		Kind:     plugins.KindLint,
		Root:     dir,
	}
}

func TestCollectAndResolve(t *testing.T) {
	root := t.TempDir()
	a := pluginWithDetails(t, root, "clippy", `
function Dependencies()
	return { cargo = { { name = "serde", version = "1.0" } } }
end`)
	b := pluginWithDetails(t, root, "rustfmt", `
function Dependencies()
	return { cargo = { { name = "serde", version = "^1.2" } }, npm = {} }
end`)
	none := pluginWithDetails(t, root, "eslint", "")

	c := newTestCollector(t)

	raw, errs := c.Collect(context.Background(), []*plugins.Plugin{a, b, none})
	require.Empty(t, errs)
	assert.Equal(t, Table{
		"cargo": deps("serde", "1.0", "serde", "^1.2"),
		"npm":   {},
	}, raw, "declarations merge in plugin order")

	resolved, errs := c.Resolve(context.Background(), []*plugins.Plugin{a, b, none})
	require.Empty(t, errs)
	require.Len(t, resolved["cargo"], 1)
	assert.Equal(t, "serde", resolved["cargo"][0].Name)
}

func TestCollectFailures(t *testing.T) {
	root := t.TempDir()
	raises := pluginWithDetails(t, root, "raises", `
function Dependencies() error("registry unreachable") end`)
	malformed := pluginWithDetails(t, root, "malformed", `
function Dependencies() return { npm = { { name = "x" } } } end`)
	wrongShape := pluginWithDetails(t, root, "wrong", `
function Dependencies() return "npm" end`)
	good := pluginWithDetails(t, root, "good", `
function Dependencies() return { npm = { { name = "x", version = "1.0.0" } } } end`)
	missing := &plugins.Plugin{
		Manifest: plugins.Manifest{ID: "gone"},
		Kind:     plugins.KindLint,
		Root:     filepath.Join(root, "gone"),
	}

	c := newTestCollector(t)
	raw, errs := c.Collect(context.Background(), []*plugins.Plugin{raises, malformed, wrongShape, good, missing})

	assert.Equal(t, Table{"npm": deps("x", "1.0.0")}, raw)
	require.Len(t, errs, 4)

	assert.Equal(t, "raises", errs[0].PluginID)
	assert.True(t, plugins.IsScript(errs[0]))
	assert.Equal(t, plugins.StageDependencies, errs[0].Stage)

	assert.Equal(t, "malformed", errs[1].PluginID)
	assert.True(t, plugins.IsOutputMalformed(errs[1]))
	assert.Contains(t, errs[1].Error(), "version is required")

	assert.True(t, plugins.IsOutputMalformed(errs[2]))
	assert.True(t, plugins.IsScript(errs[3]))
}

func TestCollectNilResult(t *testing.T) {
	root := t.TempDir()
	p := pluginWithDetails(t, root, "empty", `
function Dependencies() return nil end`)

	raw, errs := newTestCollector(t).Collect(context.Background(), []*plugins.Plugin{p})
	assert.Empty(t, errs)
	assert.Empty(t, raw)
}
