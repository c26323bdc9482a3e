package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSImports(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "named",
			body: `return tostring(require("js").imports.named("defineConfig", "eslint/config"))`,
			want: "defineConfig",
		},
		{
			name: "alias",
			body: `return tostring(require("js").imports.alias("default", "js", "@eslint/js"))`,
			want: "js",
		},
		{
			name: "default",
			body: `return tostring(require("js").imports.default("globals", "globals"))`,
			want: "globals",
		},
		{
			name: "merge",
			body: `
local js = require("js")
local defineConfig = js.imports.named("defineConfig", "eslint/config")
local ignores = js.imports.named("globalIgnores", "eslint/config")
local recommended = js.imports.alias("default", "js", "@eslint/js")
local globals = js.imports.default("globals", "globals")
return tostring(js.imports.merge(defineConfig, recommended, globals, ignores, defineConfig))
`,
			want: "import { default as js } from \"@eslint/js\"\n" +
				"import { defineConfig, globalIgnores } from \"eslint/config\"\n" +
				"import globals from \"globals\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runSnippet(t, engine, tt.body))
		})
	}
}

func TestJSValues(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"short array", `return tostring(require("js").array(1, "a", true))`, `[ 1, "a", true ]`},
		{"empty array", `return tostring(require("js").array())`, `[]`},
		{"long array", `return tostring(require("js").array(1, 2, 3, 4))`, "[\n  1,\n  2,\n  3,\n  4\n]"},
		{"object aligns keys", `return tostring(require("js").object({ a = 1, bb = 2.5 }))`, "{\n  a : 1,\n  bb: 2.5\n}"},
		{"object quotes keys", `return tostring(require("js").object({ ["no-undef"] = "off" }))`, "{\n  \"no-undef\": \"off\"\n}"},
		{"empty object", `return tostring(require("js").object({}))`, `{}`},
		{"null", `return tostring(require("js").null)`, `null`},
		{"undefined default export", `local js = require("js"); return js.exports.default(js.undefined)`, `export default undefined`},
		{
			"plain tables",
			`return require("js").exports.default({ files = { "a.js", "b.js" }, ignores = {} })`,
			`export default { files: ["a.js", "b.js"], ignores: {} }`,
		},
		{"escaped string", `return require("js").exports.default("a\"b\n")`, `export default "a\"b\n"`},
		{
			"named exports",
			`local js = require("js"); return js.exports.named({ config = 1, ab = js.null })`,
			"export const ab     = null\nexport const config = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runSnippet(t, engine, tt.body))
		})
	}
}

func TestJSFunctionCall(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"no arguments", `return tostring(require("js").fn.call("tseslint.config"))`, `tseslint.config()`},
		{
			"import callee",
			`
local js = require("js")
local defineConfig = js.imports.named("defineConfig", "eslint/config")
return tostring(js.fn.call(defineConfig, js.object({ files = { "**/*.js" } })))
`,
			"defineConfig({\n  files: [\"**/*.js\"]\n})",
		},
		{"several arguments", `return tostring(require("js").fn.call("f", 1, "x"))`, "f(\n  1,\n  \"x\"\n)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runSnippet(t, engine, tt.body))
		})
	}

	assert.ErrorContains(t, snippetErr(t, engine, `return require("js").fn.call()`), "requires at least a function argument")
}

func TestJSIndent(t *testing.T) {
	engine := newTestEngine(t)

	assert.Equal(t,
		"{\n    a: 1,\n    b: [\n        1,\n        2\n    ],\n    c: {}\n}",
		runSnippet(t, engine, `return require("js").indent("{ a: 1, b: [1, 2], c: {} }")`))
	assert.Equal(t,
		"{\n    \"a,b\": \"x:y\"\n}",
		runSnippet(t, engine, `return require("js").indent('{ "a,b": "x:y" }')`))
}

func TestJSConfigFile(t *testing.T) {
	engine := newTestEngine(t)

	res := runSnippet(t, engine, `
local js = require("js")
local defineConfig = js.imports.named("defineConfig", "eslint/config")
local recommended = js.imports.alias("default", "js", "@eslint/js")
return tostring(js.imports.merge(defineConfig, recommended)) .. "\n\n" ..
	js.exports.default(js.fn.call(defineConfig, js.array(recommended)))
`)
	assert.Equal(t,
		"import { default as js } from \"@eslint/js\"\n"+
			"import { defineConfig } from \"eslint/config\"\n\n"+
			"export default defineConfig([ js ])",
		res)
}
