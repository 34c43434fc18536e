// Package observability builds the process logger and the Prometheus
// collectors for the router.
//
// This package implements:
//   - zap logger construction from ObservabilityConfig, with optional rotating file output
//   - dispatch outcome and handler latency metrics
//   - the execution pool in-flight gauge
//   - the /metrics handler served on the metrics listener
package observability
