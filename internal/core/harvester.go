package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"taskfiles/internal/fileset"
	"taskfiles/internal/metrics"
	"taskfiles/internal/trace"
)

// RegisterOutputPath records path as a location the task expects to produce.
// The path may be a file or a directory and need not exist yet. Registering
// the same path twice is a no-op.
func (t *TrackedTask) RegisterOutputPath(path string) {
	if t.registered.Add(path) {
		trace.SafeRecord(t.sink, trace.Event{Kind: trace.EventOutputRegistered, TaskID: t.name, Path: filepath.Clean(path)})
	}
}

// RegisteredOutputPaths returns the registered locations, sorted. The slice is a copy.
func (t *TrackedTask) RegisteredOutputPaths() []string { return t.registered.Paths() }

// ResolveRegisteredOutputs turns every registered location into output files.
//
// It must run once, after the task's action has finished. Locations are
// visited in sorted order: a directory contributes all regular files beneath
// it, anything else is added as a file. A location that does not exist is a
// *fileset.NotFoundError and stops resolution; outputs already resolved stay
// in the output set. A second call returns ErrAlreadyResolved.
//
// ctx only scopes log records; resolution is synchronous and is not
// interrupted by cancellation.
func (t *TrackedTask) ResolveRegisteredOutputs(ctx context.Context) error {
	if t.resolved {
		return ErrAlreadyResolved
	}
	t.resolved = true

	locations := t.registered.Paths()
	for _, loc := range locations {
		if err := t.resolveLocation(loc); err != nil {
			t.recorder.IncResolution(metrics.ResultFailed)
			trace.SafeRecord(t.sink, trace.Event{Kind: trace.EventResolutionFailed, TaskID: t.name, Path: loc, Reason: failureReason(err)})
			t.logger.ErrorContext(ctx, "Output resolution failed", "path", loc, "error", err)
			return err
		}
		t.recorder.IncResolution(metrics.ResultSuccess)
		trace.SafeRecord(t.sink, trace.Event{Kind: trace.EventOutputResolved, TaskID: t.name, Path: loc})
	}

	t.logger.InfoContext(ctx, "Resolved registered outputs",
		"locations", len(locations),
		"outputs", t.outputs.Len())
	return nil
}

func (t *TrackedTask) resolveLocation(loc string) error {
	info, err := t.fs.Stat(loc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.recorder.IncNotFound(opResolveOutput)
			return &fileset.NotFoundError{Op: opResolveOutput, Path: loc, Err: err}
		}
		return fmt.Errorf("%s %q: %w", opResolveOutput, loc, err)
	}
	if info.IsDir() {
		return fileset.ExpandDir(t.fs, loc, t.AddOutputFile)
	}
	return t.AddOutputFile(loc)
}

func failureReason(err error) string {
	if fileset.IsNotFound(err) {
		return "NotFound"
	}
	return "Error"
}
