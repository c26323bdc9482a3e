// Package script embeds the Lua runtime that plugin scripts execute in.
//
// # Overview
//
// Plugins are directories of Lua files exposing well-known global functions
// (Details, Dependencies, Validate, Generate, Run, Eval). This package hides
// gopher-lua behind three small interfaces:
//
//	Engine   - loads one or more script files into a fresh interpreter
//	Handle   - a loaded interpreter; looks up global functions by name
//	Function - a callable global; takes and returns plain Go values
//
// Every Load creates a new interpreter. Interpreter state is never shared
// between handles, so callers on different goroutines never contend.
//
// # Values
//
// Values cross the boundary as plain Go trees: map[string]interface{},
// []interface{}, string, int64, float64, bool and nil. Lua tables with
// contiguous integer keys starting at 1 become slices, every other table
// becomes a map. An empty table becomes an empty map.
//
// # Helper modules
//
// Scripts can require the helper modules log, json, yaml, toml, path, env,
// js and eval.
//
//	local json = require("json")
//	function Generate(config)
//		return { ["eslintrc.json"] = json.stringify(config.config or {}) }
//	end
//
// The js module renders Lua values as JavaScript source, for config files
// such as eslint.config.js:
//
//	local js = require("js")
//	local defineConfig = js.imports.named("defineConfig", "eslint/config")
//	local src = tostring(js.imports.merge(defineConfig)) .. "\n\n" ..
//		js.exports.default(js.fn.call(defineConfig, js.array(js.object({ files = { "**/*.js" } }))))
//
// # Compiled script cache
//
// Compiled function prototypes are cached in an LRU keyed by file path and
// invalidated when the file's size or modification time changes.
package script
