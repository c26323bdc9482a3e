// Package config loads flint's two configuration sources.
//
// # Project Config
//
// flint.toml lives at the project root and selects the plugins to run:
//
//	[flint]
//	version = 1
//
//	[common]
//	indent = 2
//
//	[rules.eslint]
//	semi = "error"
//
//	[tests.jest]
//
//	[ci.github]
//	env = { NODE_ENV = "test" }
//
//	[report.junit]
//
//	[config.eslint]
//	# passed through to lint plugins as config.config
//
// Load it once per invocation with Load; the result is read-only.
//
// # Settings
//
// Process settings come from environment variables and are overridden by CLI
// flags:
//
//	FLINT_PLUGINS_DIR="~/.flint/plugins"
//	FLINT_CONFIG="flint.toml"
//	FLINT_OUTPUT_DIR="."
//	FLINT_REPORTS_DIR=".flint/reports"
//	FLINT_LOG_FILE=".flint/logs.txt"
//	FLINT_LOG_LEVEL="info"
//	FLINT_WORKERS=16
//	FLINT_NON_INTERACTIVE=false
//	FLINT_SCRIPT_CACHE_SIZE=256
//	FLINT_METRICS_FILE=""
//	FLINT_JOB_TIMEOUT=""   # e.g. "5m"; empty means no deadline
package config
