// Package otel publishes engine counters through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and
// one Int64ObservableGauge per histogram bucket, all fed by a single
// callback that reads a fresh snapshot each collection cycle. Callers own
// the MeterProvider.
package otel
