package core

import (
	"errors"
	"log/slog"
	"path/filepath"

	"taskfiles/internal/fileset"
	"taskfiles/internal/metrics"
	"taskfiles/internal/trace"
)

const (
	opAddInputFile  = "add input file"
	opAddOutputFile = "add output file"
	opResolveOutput = "resolve output"
)

// ErrAlreadyResolved is returned by a second ResolveRegisteredOutputs call.
var ErrAlreadyResolved = errors.New("registered outputs already resolved")

// TrackedConfig seeds a TrackedTask.
type TrackedConfig struct {
	// Name labels log records and trace events.
	Name string
	// InputFiles seeds the input set. Nil means empty. These paths are trusted
	// and are not checked for existence.
	InputFiles []string
}

// TrackedTask tracks the files a single task reads and writes.
//
// It owns three sets: input files, output files and registered output
// locations. Input and output files must exist when added; registered
// locations need not exist until ResolveRegisteredOutputs runs.
//
// A TrackedTask is not safe for concurrent use.
type TrackedTask struct {
	name       string
	fs         fileset.FS
	inputs     *fileset.Set
	outputs    *fileset.Set
	registered *fileset.Set
	resolved   bool

	logger   *slog.Logger
	recorder metrics.Recorder
	sink     trace.Sink
}

// TrackedOption customizes a TrackedTask.
type TrackedOption func(*TrackedTask)

// WithFS replaces the filesystem used for existence checks and walks.
func WithFS(fsys fileset.FS) TrackedOption {
	return func(t *TrackedTask) {
		if fsys != nil {
			t.fs = fsys
		}
	}
}

func WithLogger(l *slog.Logger) TrackedOption {
	return func(t *TrackedTask) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) TrackedOption {
	return func(t *TrackedTask) {
		if r != nil {
			t.recorder = r
		}
	}
}

func WithTraceSink(s trace.Sink) TrackedOption {
	return func(t *TrackedTask) {
		if s != nil {
			t.sink = s
		}
	}
}

// NewTrackedTask creates a TrackedTask with empty output and registered sets.
func NewTrackedTask(cfg TrackedConfig, opts ...TrackedOption) *TrackedTask {
	t := &TrackedTask{
		name:       cfg.Name,
		fs:         fileset.OSFS{},
		inputs:     fileset.NewSet(cfg.InputFiles...),
		outputs:    fileset.NewSet(),
		registered: fileset.NewSet(),
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
		sink:       trace.NopSink{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("task", t.name)
	return t
}

// Name returns the task name given at construction.
func (t *TrackedTask) Name() string { return t.name }

// InputFiles returns the input set, sorted. The slice is a copy.
func (t *TrackedTask) InputFiles() []string { return t.inputs.Paths() }

// SetInputFiles replaces the whole input set with paths, deduplicated.
// No existence check is made.
func (t *TrackedTask) SetInputFiles(paths []string) {
	t.inputs.Replace(paths)
	t.logger.Debug("Input files replaced", "count", t.inputs.Len())
}

// AddInputFile adds path to the input set. It returns a *fileset.NotFoundError
// if path does not exist; adding a path twice is a no-op.
func (t *TrackedTask) AddInputFile(path string) error {
	return t.addFile(t.inputs, opAddInputFile, metrics.SetInput, trace.EventInputAdded, path)
}

// AddInputDirectory adds every regular file under path, at any depth, to the
// input set. A missing path is silently ignored.
func (t *TrackedTask) AddInputDirectory(path string) error {
	return t.addDirectory(path, t.AddInputFile, trace.EventInputDirMissing)
}

// OutputFiles returns the output set, sorted. The slice is a copy.
func (t *TrackedTask) OutputFiles() []string { return t.outputs.Paths() }

// AddOutputFile adds path to the output set. It returns a *fileset.NotFoundError
// if path does not exist; adding a path twice is a no-op.
func (t *TrackedTask) AddOutputFile(path string) error {
	return t.addFile(t.outputs, opAddOutputFile, metrics.SetOutput, trace.EventOutputAdded, path)
}

// AddOutputDirectory adds every regular file under path, at any depth, to the
// output set. A missing path is silently ignored.
func (t *TrackedTask) AddOutputDirectory(path string) error {
	return t.addDirectory(path, t.AddOutputFile, trace.EventOutputDirMissing)
}

func (t *TrackedTask) addFile(set *fileset.Set, op string, label metrics.SetLabel, kind trace.EventKind, path string) error {
	if ok, err := fileset.Exists(t.fs, path); !ok {
		t.recorder.IncNotFound(op)
		return &fileset.NotFoundError{Op: op, Path: path, Err: err}
	}
	if set.Add(path) {
		t.recorder.IncFilesAdded(label)
		trace.SafeRecord(t.sink, trace.Event{Kind: kind, TaskID: t.name, Path: filepath.Clean(path)})
	}
	return nil
}

func (t *TrackedTask) addDirectory(path string, add fileset.AddFunc, missing trace.EventKind) error {
	if ok, _ := fileset.Exists(t.fs, path); !ok {
		t.logger.Debug("Skipping missing directory", "path", path)
		trace.SafeRecord(t.sink, trace.Event{Kind: missing, TaskID: t.name, Path: path})
		return nil
	}
	return fileset.ExpandDir(t.fs, path, add)
}
