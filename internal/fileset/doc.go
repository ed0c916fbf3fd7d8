// Package fileset provides the path-set primitives used to track the files a
// build task reads and writes.
//
// It provides:
//   - Set: a deduplicated collection of cleaned paths
//   - ExpandDir: a link-aware recursive walk that feeds regular files to a callback
//   - NotFoundError: the failure raised when an explicitly named path is missing
//
// Nothing in this package is safe for concurrent use; a task owns its sets
// exclusively and its orchestrator calls into it sequentially.
package fileset
