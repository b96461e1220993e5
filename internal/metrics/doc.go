// Package metrics records the outcome of each lifecycle step and writes
// them in the Prometheus text format for node_exporter's textfile
// collector. A run is short-lived, so nothing is served over HTTP.
package metrics
