package core

// Task is the declarative definition of one build step, as read from a task file.
type Task struct {
	// Name identifies the task in logs, traces and the state store.
	Name string `json:"name" yaml:"name"`

	// Inputs are file paths or glob patterns the task reads.
	// A literal path must exist; a glob may match nothing.
	Inputs []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// InputDirs are directories whose regular files are all inputs.
	// A missing directory contributes nothing.
	InputDirs []string `json:"input_dirs,omitempty" yaml:"input_dirs,omitempty"`

	// Run is the shell command executed as the task's action.
	Run string `json:"run" yaml:"run"`

	// Env holds the only environment variables visible to Run.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Outputs are files or directories the action is expected to produce.
	// They are registered before the action runs and must exist once it has
	// finished.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// OutputDirs are directories collected after the action if they exist.
	OutputDirs []string `json:"output_dirs,omitempty" yaml:"output_dirs,omitempty"`
}
