package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskfiles/internal/fileset"
	"taskfiles/internal/trace"
)

var shellEnv = map[string]string{"PATH": "/usr/bin:/bin"}

func TestRunner_TracksInputsAndResolvesOutputs(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "src", "main.c"))
	hdr := writeFile(t, filepath.Join(dir, "include", "sub", "main.h"))

	rec := trace.NewRecorder()
	r := NewRunner(dir)
	r.Sink = rec

	res, err := r.Run(context.Background(), &Task{
		Name:      "build",
		Inputs:    []string{"src/*.c"},
		InputDirs: []string{"include", "not-there"},
		Run:       "mkdir -p out/bin && echo bin > out/bin/app && echo log > build.log",
		Env:       shellEnv,
		Outputs:   []string{"out", "build.log"},
	})
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	assert.Equal(t, []string{hdr, src}, res.InputFiles)
	assert.Equal(t, []string{filepath.Join(dir, "build.log"), filepath.Join(dir, "out")}, res.RegisteredOutputs)
	assert.Equal(t, []string{filepath.Join(dir, "build.log"), filepath.Join(dir, "out", "bin", "app")}, res.OutputFiles)

	var phases []string
	for _, e := range rec.Snapshot() {
		if e.Kind == trace.EventPhaseEntered {
			phases = append(phases, e.Reason)
		}
	}
	assert.Equal(t, []string{"AcceptingInputs", "ActionRunning", "ResolvingOutputs", "Finished"}, phases)
}

func TestRunner_ActionReportedOutputs(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner(dir).Run(context.Background(), &Task{
		Name: "report",
		Run:  `echo data > gen.txt && echo gen.txt >> "$TASKFILES_OUTPUTS" && echo "" >> "$TASKFILES_OUTPUTS"`,
		Env:  shellEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, PhaseFinished, res.Phase)
	assert.Equal(t, []string{filepath.Join(dir, "gen.txt")}, res.OutputFiles)
}

func TestRunner_MissingDeclaredOutputFails(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner(dir).Run(context.Background(), &Task{
		Name:    "lazy",
		Run:     "true",
		Env:     shellEnv,
		Outputs: []string{"never-written.txt"},
	})
	require.Error(t, err)
	assert.True(t, fileset.IsNotFound(err))
	assert.Equal(t, PhaseFailed, res.Phase)
	assert.Empty(t, res.OutputFiles)
}

func TestRunner_MissingLiteralInputFailsBeforeAction(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner(dir).Run(context.Background(), &Task{
		Name:    "needs-input",
		Inputs:  []string{"missing.c"},
		Run:     "touch ran",
		Env:     shellEnv,
		Outputs: []string{"ran"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileset.ErrNotFound))
	assert.Equal(t, PhaseFailed, res.Phase)

	ok, _ := fileset.Exists(nil, filepath.Join(dir, "ran"))
	assert.False(t, ok, "action must not run when inputs fail")
}

func TestRunner_FailedActionSkipsResolution(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner(dir).Run(context.Background(), &Task{
		Name:       "broken",
		Run:        "mkdir -p out && echo partial > out/p && exit 2",
		Env:        shellEnv,
		Outputs:    []string{"out"},
		OutputDirs: []string{"out"},
	})
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, PhaseFailed, res.Phase)
	assert.Equal(t, 2, res.ExitCode)
	assert.Empty(t, res.OutputFiles, "failed actions never contribute outputs")
	assert.Equal(t, []string{filepath.Join(dir, "out")}, res.RegisteredOutputs)
}

func TestRunner_OutputDirsAreBestEffort(t *testing.T) {
	dir := t.TempDir()
	res, err := NewRunner(dir).Run(context.Background(), &Task{
		Name:       "docs",
		Run:        "mkdir -p site/css && echo x > site/css/a.css",
		Env:        shellEnv,
		OutputDirs: []string{"site", "coverage"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "site", "css", "a.css")}, res.OutputFiles)
}

func TestRunner_ValidatesTask(t *testing.T) {
	r := NewRunner(t.TempDir())
	for _, task := range []*Task{nil, {Run: "true"}, {Name: "no-run"}} {
		res, err := r.Run(context.Background(), task)
		assert.Error(t, err)
		assert.Nil(t, res)
	}
}

func TestReadOutputsFile_MissingIsEmpty(t *testing.T) {
	lines, err := readOutputsFile(filepath.Join(t.TempDir(), "gone"))
	require.NoError(t, err)
	assert.Empty(t, lines)
}
