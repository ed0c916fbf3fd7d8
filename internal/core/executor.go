package core

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"syscall"
)

// ExecutionResult contains the results of running a task's action.
type ExecutionResult struct {
	Stdout []byte
	Stderr []byte

	// ExitCode is the process exit code; 0 indicates success.
	ExitCode int
}

// Executor runs a task's action with an isolated environment.
//
// Only variables declared in Task.Env (plus the runner-provided extras) are
// visible to the command; nothing is inherited from the host.
type Executor struct {
	// WorkingDir is the directory where actions are executed.
	WorkingDir string
}

// NewExecutor creates a new Executor with the given working directory.
func NewExecutor(workingDir string) *Executor {
	return &Executor{WorkingDir: workingDir}
}

// Execute runs task.Run through "sh -c".
//
// extra is merged over task.Env; the runner uses it to pass OutputsEnvVar.
// A non-zero exit is reported in the result, not as an error. Errors are
// reserved for failing to start the command and for cancellation, in which
// case the whole process group is killed.
func (e *Executor) Execute(ctx context.Context, task *Task, extra map[string]string) (*ExecutionResult, error) {
	if task == nil {
		return nil, fmt.Errorf("task is nil")
	}
	if task.Run == "" {
		return nil, fmt.Errorf("task.Run is empty")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", task.Run)
	cmd.Dir = e.WorkingDir
	cmd.Env = buildIsolatedEnv(mergeEnv(task.Env, extra))

	// Own process group so cancellation can kill the entire tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var err error
	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	case err = <-done:
		// CommandContext may have killed the process before we observed ctx.Done.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("execution cancelled: %w", ctxErr)
		}
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
	}

	return &ExecutionResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
	}, nil
}

func mergeEnv(base, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return base
	}
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// buildIsolatedEnv turns the allowlist into KEY=VALUE pairs, sorted by key.
// An empty allowlist yields an empty (non-nil) environment, never os.Environ().
func buildIsolatedEnv(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(result)
	return result
}
