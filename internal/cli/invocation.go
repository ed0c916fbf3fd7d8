package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"taskfiles/internal/config"
)

const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

type InvocationError struct {
	ExitCode int
	Message  string
	// Err is the underlying failure, if any.
	Err error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

func configErrorf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitConfigError, Message: fmt.Sprintf(format, args...)}
}

// RunInvocation is the canonical description of a `run` command.
//
// All paths are cleaned and relative paths are resolved against WorkDir,
// which must be absolute. Nothing depends on the process working directory.
type RunInvocation struct {
	WorkDir     string
	TaskFile    string
	TracePath   string
	MetricsPath string
	// Only restricts the run to the named tasks; empty means all.
	Only      []string
	NoState   bool
	LogLevel  config.LogLevel
	LogFormat config.LogFormat

	logLevelSet  bool
	logFormatSet bool
}

func (c *RunCmd) invocation() (RunInvocation, error) {
	workDir, err := canonicalWorkDir(c.Workdir)
	if err != nil {
		return RunInvocation{}, err
	}
	inv := RunInvocation{
		WorkDir:      workDir,
		Only:         c.Tasks,
		NoState:      c.NoState,
		LogLevel:     config.NormalizeLogLevel(c.LogLevel),
		LogFormat:    config.NormalizeLogFormat(c.LogFormat),
		logLevelSet:  strings.TrimSpace(c.LogLevel) != "",
		logFormatSet: strings.TrimSpace(c.LogFormat) != "",
	}
	if inv.TaskFile, err = resolveUnderWorkDir(workDir, c.File); err != nil {
		return RunInvocation{}, err
	}
	if strings.TrimSpace(c.Trace) != "" {
		if inv.TracePath, err = resolveUnderWorkDir(workDir, c.Trace); err != nil {
			return RunInvocation{}, err
		}
	}
	if strings.TrimSpace(c.MetricsFile) != "" {
		if inv.MetricsPath, err = resolveUnderWorkDir(workDir, c.MetricsFile); err != nil {
			return RunInvocation{}, err
		}
	}
	seen := map[string]bool{}
	for _, name := range c.Tasks {
		if seen[name] {
			return RunInvocation{}, invalidInvocationf("task %q selected twice", name)
		}
		seen[name] = true
	}
	return inv, nil
}

func canonicalWorkDir(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalidInvocationf("--workdir is required")
	}
	workDir := filepath.Clean(raw)
	if !filepath.IsAbs(workDir) {
		return "", invalidInvocationf("--workdir must be an absolute path (got %q)", raw)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return "", invalidInvocationf("--workdir: %v", err)
	}
	if !info.IsDir() {
		return "", invalidInvocationf("--workdir %q is not a directory", workDir)
	}
	return workDir, nil
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Join(workDir, clean), nil
}

// ExitCode extracts a semantic exit code from an error returned by Run.
// Errors that are not invocation errors map to ExitInternalError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	return ExitInternalError
}
