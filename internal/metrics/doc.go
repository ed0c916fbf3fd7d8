// Package metrics records file-tracking and task lifecycle metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never requires nil checks at call sites:
//
//	task := core.NewTrackedTask(cfg, core.WithRecorder(metrics.NoopRecorder{}))
//
// PrometheusRecorder is the real implementation. The CLI exports its registry
// to a node_exporter textfile after a run (see WriteTextfile).
package metrics
