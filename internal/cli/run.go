package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"taskfiles/internal/config"
	"taskfiles/internal/core"
	"taskfiles/internal/metrics"
	"taskfiles/internal/state"
	"taskfiles/internal/trace"
)

type RunCmd struct {
	Workdir     string   `short:"C" help:"Absolute working directory. Relative paths resolve here."`
	File        string   `short:"f" default:"tasks.yaml" help:"Task file, relative to the working directory."`
	Trace       string   `help:"Write the canonical trace JSON to this path."`
	MetricsFile string   `name:"metrics-file" help:"Write Prometheus metrics in text format to this path."`
	LogLevel    string   `name:"log-level" help:"debug, info, warn or error. Overrides the task file and environment."`
	LogFormat   string   `name:"log-format" help:"text or json. Overrides the task file and environment."`
	NoState     bool     `name:"no-state" help:"Do not persist the run under .taskfiles/."`
	Tasks       []string `arg:"" optional:"" help:"Tasks to run. Defaults to all, in file order."`
}

// Report is the JSON document printed by run and inspect.
type Report struct {
	Run   state.Run          `json:"run"`
	Tasks []state.TaskRecord `json:"tasks"`
}

func (c *RunCmd) Run(rt *runtime) error {
	inv, err := c.invocation()
	if err != nil {
		return err
	}
	if _, err := config.LoadEnv(inv.WorkDir); err != nil {
		return configErrorf("load environment: %v", err)
	}
	tf, err := config.Load(inv.TaskFile)
	if err != nil {
		return &InvocationError{ExitCode: ExitConfigError, Message: err.Error(), Err: err}
	}

	settings := tf.Settings
	settings.ApplyEnvOverrides()
	if inv.logLevelSet {
		settings.LogLevel = inv.LogLevel
	}
	if inv.logFormatSet {
		settings.LogFormat = inv.LogFormat
	}
	logger := config.NewLogger(settings.LogLevel, settings.LogFormat, rt.stderr)

	tasks, err := selectTasks(tf.Tasks, inv.Only)
	if err != nil {
		return err
	}
	return execute(rt, inv, tasks, logger)
}

func selectTasks(all []core.Task, only []string) ([]core.Task, error) {
	if len(only) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = true
	}
	out := make([]core.Task, 0, len(only))
	for _, t := range all {
		if want[t.Name] {
			out = append(out, t)
			delete(want, t.Name)
		}
	}
	for _, name := range only {
		if want[name] {
			return nil, invalidInvocationf("unknown task %q", name)
		}
	}
	return out, nil
}

// execute runs tasks serially in order and stops at the first task that
// does not finish. State, trace and metrics are written even on failure.
func execute(rt *runtime, inv RunInvocation, tasks []core.Task, logger *slog.Logger) error {
	registry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	traces := trace.NewRecorder()

	run := state.Run{
		RunID:     state.NewRunID(),
		TaskFile:  inv.TaskFile,
		WorkDir:   inv.WorkDir,
		StartTime: time.Now().UTC(),
		Status:    state.RunRunning,
		Tasks:     make([]string, 0, len(tasks)),
	}
	for _, t := range tasks {
		run.Tasks = append(run.Tasks, t.Name)
	}
	rt.result.RunID = run.RunID
	logger = logger.With("run_id", run.RunID)

	var store *state.Store
	if !inv.NoState {
		s, err := state.NewStore(inv.WorkDir)
		if err != nil {
			return err
		}
		if err := s.SaveRun(run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		store = s
	}

	logger.InfoContext(rt.ctx, "Starting run", "tasks", len(tasks), "task_file", inv.TaskFile)

	records := make([]state.TaskRecord, 0, len(tasks))
	var failure, internal error
	for i := range tasks {
		task := &tasks[i]
		runner := core.NewRunner(inv.WorkDir)
		runner.Logger = logger
		runner.Recorder = recorder
		runner.Sink = traces

		res, err := runner.Run(rt.ctx, task)
		rec := taskRecord(task.Name, res, err)
		records = append(records, rec)
		if store != nil {
			if serr := store.SaveTask(run.RunID, rec); serr != nil {
				internal = fmt.Errorf("save task %q: %w", task.Name, serr)
				break
			}
		}
		if err != nil {
			failure = err
			break
		}
		if !res.Succeeded() {
			failure = fmt.Errorf("task %q exited with code %d", task.Name, res.ExitCode)
			break
		}
	}

	end := time.Now().UTC()
	run.EndTime = &end
	run.Status = state.RunSucceeded
	if failure != nil || internal != nil {
		run.Status = state.RunFailed
	}
	if store != nil {
		if err := store.SaveRun(run); err != nil {
			internal = errors.Join(internal, fmt.Errorf("save run: %w", err))
		}
	}
	if inv.TracePath != "" {
		if err := writeTrace(inv.TracePath, traces.Trace(run.RunID)); err != nil {
			internal = errors.Join(internal, err)
		}
	}
	if inv.MetricsPath != "" {
		if err := writeMetrics(inv.MetricsPath, registry); err != nil {
			internal = errors.Join(internal, err)
		}
	}
	if err := writeJSON(rt.stdout, Report{Run: run, Tasks: records}); err != nil {
		internal = errors.Join(internal, err)
	}

	logger.InfoContext(rt.ctx, "Run finished",
		"status", run.Status,
		"tasks_run", len(records),
		"duration", end.Sub(run.StartTime))

	if internal != nil {
		return internal
	}
	if failure != nil {
		return &InvocationError{ExitCode: ExitTaskFailure, Message: failure.Error(), Err: failure}
	}
	return nil
}

func taskRecord(name string, res *core.RunResult, err error) state.TaskRecord {
	rec := state.TaskRecord{
		Name:              name,
		Phase:             string(core.PhaseFailed),
		InputFiles:        []string{},
		RegisteredOutputs: []string{},
		OutputFiles:       []string{},
	}
	if res != nil {
		rec.Phase = string(res.Phase)
		rec.ExitCode = res.ExitCode
		rec.InputFiles = nonNil(res.InputFiles)
		rec.RegisteredOutputs = nonNil(res.RegisteredOutputs)
		rec.OutputFiles = nonNil(res.OutputFiles)
		rec.DurationMS = res.Duration.Milliseconds()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeTrace(path string, tr trace.RunTrace) error {
	data, err := tr.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

func writeMetrics(path string, g prom.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := metrics.WriteTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
