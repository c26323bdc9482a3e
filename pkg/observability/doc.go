// Package observability provides logging setup, Prometheus metrics, and
// OpenTelemetry tracing for flint runs.
//
// # Logging
//
// Create the process logger:
//
//	log := observability.NewLogger("debug", os.Stderr)
//	log.WithField("plugin", "eslint").Info("Generated files")
//
// # Prometheus Metrics
//
// A Metrics value owns its registry. flint is a short-lived CLI, so metrics
// are exported with the node_exporter textfile format at the end of a run
// rather than served over HTTP:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordJob("generate", "success", time.Second)
//	_ = metrics.WriteTextfile(".flint/metrics.prom")
//
// All Metrics methods are safe to call on a nil receiver.
//
// # Tracing
//
// Jobs and lifecycle stages open spans through the global OpenTelemetry
// tracer provider. Without a configured provider the spans are no-ops:
//
//	ctx, span := observability.StartSpan(ctx, "pipeline.generate",
//		attribute.String("plugin.id", id))
//	defer func() { observability.EndSpan(span, err) }()
//
// # Panic Recovery
//
// RecoverPanic and MustRecover turn panics in worker goroutines into logged
// events or errors.
package observability
