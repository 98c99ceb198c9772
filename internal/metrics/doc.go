// Package metrics collects Prometheus metrics for issuance and verification.
//
// The CLI is short-lived, so nothing is served over HTTP. When
// [metrics] textfile is configured, each command writes the registry to
// that file for node_exporter's textfile collector:
//
//	metrics.Default.ObserveVerification("tampered")
//	_ = metrics.Default.WriteTextfile(cfg.Metrics.Textfile)
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics
