package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"taskfiles/internal/core"
)

// DefaultTaskFile is the task file looked up in the work directory.
const DefaultTaskFile = "tasks.yaml"

// Settings holds ambient options that may also come from the environment or flags.
type Settings struct {
	LogLevel  LogLevel  `yaml:"log_level"`
	LogFormat LogFormat `yaml:"log_format"`
}

// TaskFile is the parsed content of a task file.
type TaskFile struct {
	Settings Settings    `yaml:"settings"`
	Tasks    []core.Task `yaml:"tasks"`
}

// Load reads, decodes and validates a task file.
func Load(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	tf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tf, nil
}

// Parse decodes a task file strictly: unknown keys and trailing documents are errors.
func Parse(data []byte) (*TaskFile, error) {
	var tf TaskFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("task file is empty")
		}
		return nil, fmt.Errorf("decode task file: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("task file must contain a single document")
	}

	tf.Settings.LogLevel = NormalizeLogLevel(string(tf.Settings.LogLevel))
	tf.Settings.LogFormat = NormalizeLogFormat(string(tf.Settings.LogFormat))

	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate reports every problem found in the task list.
func (tf *TaskFile) Validate() error {
	if len(tf.Tasks) == 0 {
		return errors.New("task file defines no tasks")
	}
	var errs []error
	seen := make(map[string]int, len(tf.Tasks))
	for i, t := range tf.Tasks {
		at := fmt.Sprintf("tasks[%d]", i)
		name := strings.TrimSpace(t.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("%s: name is required", at))
		case name != t.Name:
			errs = append(errs, fmt.Errorf("%s: name %q has surrounding whitespace", at, t.Name))
		case strings.ContainsAny(name, `/\`):
			errs = append(errs, fmt.Errorf("%s: name %q must not contain path separators", at, name))
		}
		if prev, dup := seen[name]; dup && name != "" {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q (first defined at tasks[%d])", at, name, prev))
		} else {
			seen[name] = i
		}
		if strings.TrimSpace(t.Run) == "" {
			errs = append(errs, fmt.Errorf("%s: run is required", at))
		}
		errs = append(errs, checkPaths(at, "inputs", t.Inputs)...)
		errs = append(errs, checkPaths(at, "input_dirs", t.InputDirs)...)
		errs = append(errs, checkPaths(at, "outputs", t.Outputs)...)
		errs = append(errs, checkPaths(at, "output_dirs", t.OutputDirs)...)
	}
	return errors.Join(errs...)
}

func checkPaths(at, field string, paths []string) []error {
	var errs []error
	for j, p := range paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%s.%s[%d]: empty path", at, field, j))
		}
	}
	return errs
}
