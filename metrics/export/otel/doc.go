// Package otel binds jam counters to OpenTelemetry asynchronous instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per jam counter and
// one Int64ObservableGauge per latency bucket. A single callback reads
// [jam.Instance.MetricsSnapshot] on each collection. Callers own the
// MeterProvider.
package otel
