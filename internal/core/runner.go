package core

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskfiles/internal/fileset"
	"taskfiles/internal/metrics"
	"taskfiles/internal/trace"
)

// OutputsEnvVar names the file an action may append extra output locations
// to, one path per line. Relative paths resolve against the working directory.
const OutputsEnvVar = "TASKFILES_OUTPUTS"

// Runner drives one task through its lifecycle:
//
//  1. Construct the tracked task
//  2. Accept inputs (patterns, then directories)
//  3. Register declared outputs and run the action
//  4. Register outputs the action reported, collect OutputDirs and resolve
//     every registered location
//  5. Finish
//
// A non-zero exit moves the task to PhaseFailed and skips resolution: a failed
// action never contributes outputs.
type Runner struct {
	// WorkingDir is the task execution directory; relative paths resolve here.
	WorkingDir string

	Executor *Executor
	Resolver *InputResolver

	// FS backs existence checks and directory walks. Defaults to the host.
	FS fileset.FS

	Logger   *slog.Logger
	Recorder metrics.Recorder
	Sink     trace.Sink
}

// NewRunner creates a Runner for the given working directory.
func NewRunner(workingDir string) *Runner {
	return &Runner{
		WorkingDir: workingDir,
		Executor:   NewExecutor(workingDir),
		Resolver:   NewInputResolver(workingDir),
		FS:         fileset.OSFS{},
		Logger:     slog.Default(),
		Recorder:   metrics.NoopRecorder{},
		Sink:       trace.NopSink{},
	}
}

// RunResult contains the tracked files and outcome of running a task.
type RunResult struct {
	Name  string
	Phase Phase

	Stdout   []byte
	Stderr   []byte
	ExitCode int

	InputFiles        []string
	RegisteredOutputs []string
	OutputFiles       []string

	Duration time.Duration
}

// Succeeded reports whether the task reached PhaseFinished.
func (r *RunResult) Succeeded() bool { return r != nil && r.Phase == PhaseFinished }

// Run executes task and returns what it read and produced.
//
// The returned error is non-nil when tracking itself failed (a missing input
// or an unresolved output, a cancelled action). A failing action is not an
// error: it is reported through RunResult.Phase and RunResult.ExitCode.
// The result is non-nil whenever the task passed validation.
func (r *Runner) Run(ctx context.Context, task *Task) (res *RunResult, err error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := r.logger().With("task", task.Name)
	lc := NewLifecycle(task.Name)
	tracked := NewTrackedTask(TrackedConfig{Name: task.Name},
		WithFS(r.FS),
		WithLogger(r.logger()),
		WithRecorder(r.recorder()),
		WithTraceSink(r.Sink),
	)
	res = &RunResult{Name: task.Name}

	defer func() {
		if err != nil && !IsTerminal(lc.Phase()) {
			_ = lc.Fail()
			r.enter(task.Name, PhaseFailed)
		}
		res.Phase = lc.Phase()
		res.InputFiles = tracked.InputFiles()
		res.RegisteredOutputs = tracked.RegisteredOutputPaths()
		res.OutputFiles = tracked.OutputFiles()
		res.Duration = time.Since(start)
		r.recorder().ObserveTaskDuration(task.Name, res.Duration)
		r.recorder().IncTaskOutcome(outcomeLabel(res.Phase))
	}()

	if err := r.advance(lc, PhaseConstructed, PhaseAcceptingInputs); err != nil {
		return res, err
	}
	if err := r.Resolver.Apply(tracked, task.Inputs); err != nil {
		return res, fmt.Errorf("task %q: inputs: %w", task.Name, err)
	}
	for _, dir := range task.InputDirs {
		if err := tracked.AddInputDirectory(r.abs(dir)); err != nil {
			return res, fmt.Errorf("task %q: input dir %q: %w", task.Name, dir, err)
		}
	}

	if err := r.advance(lc, PhaseAcceptingInputs, PhaseActionRunning); err != nil {
		return res, err
	}
	for _, out := range task.Outputs {
		tracked.RegisterOutputPath(r.abs(out))
	}
	exec, err := r.runAction(ctx, task, tracked)
	if err != nil {
		return res, fmt.Errorf("task %q: %w", task.Name, err)
	}
	res.Stdout, res.Stderr, res.ExitCode = exec.Stdout, exec.Stderr, exec.ExitCode
	if exec.ExitCode != 0 {
		logger.WarnContext(ctx, "Task action failed", "exit_code", exec.ExitCode)
		if err := lc.Fail(); err != nil {
			return res, err
		}
		r.enter(task.Name, PhaseFailed)
		return res, nil
	}

	if err := r.advance(lc, PhaseActionRunning, PhaseResolvingOutputs); err != nil {
		return res, err
	}
	for _, dir := range task.OutputDirs {
		if err := tracked.AddOutputDirectory(r.abs(dir)); err != nil {
			return res, fmt.Errorf("task %q: output dir %q: %w", task.Name, dir, err)
		}
	}
	if err := tracked.ResolveRegisteredOutputs(ctx); err != nil {
		return res, fmt.Errorf("task %q: %w", task.Name, err)
	}

	if err := r.advance(lc, PhaseResolvingOutputs, PhaseFinished); err != nil {
		return res, err
	}
	logger.InfoContext(ctx, "Task finished",
		"inputs", len(tracked.InputFiles()),
		"outputs", len(tracked.OutputFiles()))
	return res, nil
}

// runAction executes the task with OutputsEnvVar pointing at a scratch file
// and registers every location the action wrote there.
func (r *Runner) runAction(ctx context.Context, task *Task, tracked *TrackedTask) (*ExecutionResult, error) {
	f, err := os.CreateTemp("", "taskfiles-outputs-*")
	if err != nil {
		return nil, fmt.Errorf("create outputs file: %w", err)
	}
	outputsFile := f.Name()
	_ = f.Close()
	defer os.Remove(outputsFile)

	exec, err := r.Executor.Execute(ctx, task, map[string]string{OutputsEnvVar: outputsFile})
	if err != nil {
		return nil, err
	}
	if exec.ExitCode != 0 {
		return exec, nil
	}

	reported, err := readOutputsFile(outputsFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", OutputsEnvVar, err)
	}
	for _, p := range reported {
		tracked.RegisterOutputPath(r.abs(p))
	}
	return exec, nil
}

// readOutputsFile returns the non-blank lines of path, trimmed.
// A file the action deleted counts as empty.
func readOutputsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func (r *Runner) advance(lc *Lifecycle, from, to Phase) error {
	if err := lc.Transition(from, to); err != nil {
		return err
	}
	r.enter(lc.task, to)
	return nil
}

func (r *Runner) enter(task string, p Phase) {
	trace.SafeRecord(r.Sink, trace.Event{Kind: trace.EventPhaseEntered, TaskID: task, Reason: string(p)})
	r.logger().Debug("Task phase entered", "task", task, "phase", p)
}

func (r *Runner) abs(p string) string {
	if filepath.IsAbs(p) || r.WorkingDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(r.WorkingDir, p)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) recorder() metrics.Recorder {
	if r.Recorder == nil {
		return metrics.NoopRecorder{}
	}
	return r.Recorder
}

func outcomeLabel(p Phase) metrics.ResultLabel {
	if p == PhaseFinished {
		return metrics.ResultSuccess
	}
	return metrics.ResultFailed
}

// validateTask ensures the task is valid before execution.
func validateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	if task.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if task.Run == "" {
		return fmt.Errorf("task run command is required")
	}
	return nil
}
