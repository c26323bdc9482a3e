// Package cli implements the flint command-line interface.
//
// # Commands
//
// generate: write config files produced by the active lint, test and CI
// plugins
//
//	flint generate
//	flint generate --dry-run
//	flint generate --watch
//
// test: run the active lint and test plugins, evaluate their output and
// hand each result to the active report plugins
//
//	flint test
//	flint test --lint
//
// plugins: list installed plugins
//
//	flint plugins
//	flint plugins --ext js --yaml
//
// deps: print the resolved dependencies of the active plugins
//
//	flint deps
//
// init: create a default flint.toml
//
//	flint init
//
// # Exit status
//
// A command exits 1 when it fails to start or when any plugin logged an
// error, and 0 otherwise.
package cli
