// Package observability provides the Prometheus metrics of a report run.
//
// The CLI runs once and exits, so metrics are not served over HTTP. When
// --metrics-file is given they are written at the end of the run in the
// text exposition format, ready for the node exporter's textfile collector.
package observability
