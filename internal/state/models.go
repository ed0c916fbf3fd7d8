package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// NewRunID returns a fresh random run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is the persistent metadata of one invocation.
type Run struct {
	RunID     string     `json:"run_id"`
	TaskFile  string     `json:"task_file"`
	WorkDir   string     `json:"work_dir"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    RunStatus  `json:"status"`
	// Tasks lists task names in execution order.
	Tasks []string `json:"tasks"`
}

func (r Run) Validate() error {
	var errs []error
	if _, err := uuid.Parse(r.RunID); err != nil {
		errs = append(errs, fmt.Errorf("run_id must be a UUID: %w", err))
	}
	if strings.TrimSpace(r.WorkDir) == "" {
		errs = append(errs, errors.New("work_dir is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	switch r.Status {
	case RunRunning, RunSucceeded, RunFailed:
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if r.Tasks == nil {
		errs = append(errs, errors.New("tasks must be an array (not null)"))
	}
	return errors.Join(errs...)
}

// TaskRecord is the tracked-file manifest of one task within a run.
type TaskRecord struct {
	Name              string   `json:"name"`
	Phase             string   `json:"phase"`
	ExitCode          int      `json:"exit_code"`
	InputFiles        []string `json:"input_files"`
	RegisteredOutputs []string `json:"registered_outputs"`
	OutputFiles       []string `json:"output_files"`
	// Error is the tracking failure, if any. Action failures only set ExitCode.
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (t TaskRecord) Validate() error {
	var errs []error
	if strings.TrimSpace(t.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.ContainsAny(t.Name, `/\`) {
		errs = append(errs, fmt.Errorf("name %q must not contain path separators", t.Name))
	}
	if strings.TrimSpace(t.Phase) == "" {
		errs = append(errs, errors.New("phase is required"))
	}
	if t.InputFiles == nil {
		errs = append(errs, errors.New("input_files must be an array (not null)"))
	}
	if t.RegisteredOutputs == nil {
		errs = append(errs, errors.New("registered_outputs must be an array (not null)"))
	}
	if t.OutputFiles == nil {
		errs = append(errs, errors.New("output_files must be an array (not null)"))
	}
	return errors.Join(errs...)
}
