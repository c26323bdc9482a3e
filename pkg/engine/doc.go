// Package engine ties plugin discovery, the lifecycle pipeline, dependency
// resolution and the job scheduler together.
//
// An Engine is built once per process. Its registry is never rebuilt; a
// changed config only changes which plugins are active.
package engine
