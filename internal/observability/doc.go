// Package observability provides logging, metrics, and tracing for the
// edge gateway.
//
// # Logging
//
// The Logger interface wraps zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// # Metrics
//
// Metrics lives on a private Prometheus registry and covers both
// listeners (edge and origin), the two gates, and function invocations:
//
//	metrics := observability.NewMetrics("edgegate")
//	handler := metrics.Handler()
//
// All recording methods are safe on a nil *Metrics.
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP gRPC export. Trace context is
// propagated from the edge to the origin through W3C traceparent headers.
package observability
