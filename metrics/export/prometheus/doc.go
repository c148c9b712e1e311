// Package prometheus renders jam counters in Prometheus text exposition
// format without depending on a Prometheus client library or registry.
// Counter names are jam_<module>_*_total; the latency histogram is
// jam_verify_latency_seconds and is omitted unless latency histograms are
// enabled.
package prometheus
