// Package core tracks the files a build task reads and writes.
//
// TrackedTask holds a task's input files, output files and registered output
// locations. Inputs and outputs are added either one file at a time (the file
// must exist) or a directory at a time (a missing directory is ignored).
// Outputs that do not exist yet are registered with RegisterOutputPath and
// turned into output files by ResolveRegisteredOutputs once the task's action
// has run.
//
// Runner is the orchestrator around TrackedTask: it resolves a Task
// definition's inputs, runs its action with Executor, and resolves its outputs,
// validating each step against the Lifecycle phases.
package core
