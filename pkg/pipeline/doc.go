// Package pipeline drives a single plugin through its lifecycle.
//
// Lint and test plugins are validated and then either generate config files
// or produce a command whose output is evaluated. CI plugins generate files
// from the resolved dependency table and merged environment of the other
// active plugins. Report plugins turn an evaluated result into files.
//
// Config handed to a plugin is built by Compose: a private copy of the
// plugin's own section with the shared "common" table attached.
package pipeline
