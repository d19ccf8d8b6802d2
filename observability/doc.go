// Package observability holds the instrumentation shared by the client and
// dispatch packages: Prometheus collectors, OpenTelemetry client spans and
// an in-process HDR latency histogram.
//
// [Metrics] and [Latency] are safe to use through a nil pointer, in which
// case they record nothing. [NewTracer] with a nil provider returns a no-op
// tracer.
package observability
