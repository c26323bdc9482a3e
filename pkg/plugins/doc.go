// Package plugins discovers and indexes flint plugins.
//
// # Overview
//
// A plugin is a directory of Lua scripts implementing a fixed lifecycle for
// one linter, test runner, CI generator or report writer. Plugins live under a
// plugins root, grouped by kind:
//
//	<root>/lint/eslint/{details,generate,run,validate}.lua
//	<root>/test/jest/{details,generate,run,validate}.lua
//	<root>/ci/github/{details,generate,validate}.lua
//	<root>/report/junit/{details,run,validate}.lua
//
// details.lua defines a Details function returning the manifest:
//
//	function Details()
//		return { id = "eslint", extensions = { "js", "ts" }, version = "1.0.0", author = "flint" }
//	end
//
// # Discovery
//
// Loader.Discover runs once per process. A directory that fails to load, or
// that lacks a script its kind requires, is skipped with one discovery error;
// the remaining plugins are unaffected. When two directories of the same kind
// declare the same id, the lexicographically first directory wins.
//
//	loader := plugins.NewLoader(engine, log, plugins.WithSink(sink))
//	registry, skipped := loader.Discover(ctx, ".flint/plugins")
//	for _, p := range registry.ListActive(cfg) {
//		fmt.Println(p)
//	}
//
// # Errors
//
// Every lifecycle failure is reported as an *Error tagged with the plugin id
// and Stage. errors.Is matches the taxonomy sentinels (ErrScript,
// ErrValidationFailed, ...) as well as the underlying cause.
//
// # Related Packages
//
//   - pkg/script: Lua engine used to call plugin entry points
//   - pkg/pipeline: drives plugins through their lifecycle
package plugins
