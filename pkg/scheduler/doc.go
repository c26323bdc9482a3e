// Package scheduler dispatches plugin jobs onto a bounded worker pool.
//
// Generate jobs write the files a plugin generates. Run jobs spawn the
// plugin's command, evaluate its output and hand the result to every report
// plugin. Dispatch does not block; Join waits for all jobs, while Pending and
// Done let interactive callers poll.
package scheduler
