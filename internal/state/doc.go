// Package state persists what each run tracked under:
//
//	<baseDir>/.taskfiles/runs/<run-id>/run.json
//	<baseDir>/.taskfiles/runs/<run-id>/tasks/<task-name>.json
//
// All writes are atomic and durable (file sync + atomic rename + dir sync).
// Records are written for inspection only; nothing reads them back to make
// build decisions.
package state
