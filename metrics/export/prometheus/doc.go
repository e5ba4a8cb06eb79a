// Package prometheus exposes engine counters as a client_golang Collector.
//
// [NewPrometheusExporter] wraps an engine; register the exporter with an
// existing registry or mount [PrometheusExporter.Handler] on its own.
// Counter names are prefixed studyauth_ and end in _total; the single
// histogram is studyauth_session_assembly_latency_seconds.
//
// The exporter never touches the default global registry.
package prometheus
