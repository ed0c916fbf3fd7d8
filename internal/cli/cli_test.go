package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	icl "taskfiles/internal/cli"
	"taskfiles/internal/trace"
)

const buildTasks = `
tasks:
  - name: gen
    inputs: ["src/*.txt"]
    run: mkdir -p out && cat src/*.txt > out/all.txt
    env: {PATH: "/usr/bin:/bin"}
    outputs: [out]
  - name: report
    input_dirs: [out]
    run: echo done > report.log
    env: {PATH: "/usr/bin:/bin"}
    outputs: [report.log]
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupWorkDir(t *testing.T, tasks string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tasks.yaml"), tasks)
	writeFile(t, filepath.Join(dir, "src", "a.txt"), "a\n")
	writeFile(t, filepath.Join(dir, "src", "b.txt"), "b\n")
	return dir
}

func run(t *testing.T, args ...string) (icl.Result, icl.Report, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	res, err := icl.Run(context.Background(), args, &stdout, &stderr)
	var report icl.Report
	if stdout.Len() > 0 {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &report), stdout.String())
	}
	return res, report, err
}

func TestRun_TracksFilesAcrossTasks(t *testing.T) {
	dir := setupWorkDir(t, buildTasks)

	res, report, err := run(t, "run", "--workdir", dir)
	require.NoError(t, err)
	assert.Equal(t, icl.ExitSuccess, res.ExitCode)
	assert.Equal(t, res.RunID, report.Run.RunID)
	assert.EqualValues(t, "succeeded", report.Run.Status)
	require.Len(t, report.Tasks, 2)

	gen, rep := report.Tasks[0], report.Tasks[1]
	assert.Equal(t, []string{filepath.Join(dir, "src", "a.txt"), filepath.Join(dir, "src", "b.txt")}, gen.InputFiles)
	assert.Equal(t, []string{filepath.Join(dir, "out", "all.txt")}, gen.OutputFiles)
	assert.Equal(t, gen.OutputFiles, rep.InputFiles, "a downstream task reads what upstream wrote")
	assert.Equal(t, []string{filepath.Join(dir, "report.log")}, rep.OutputFiles)
}

func TestRun_TraceIsDeterministicAcrossRuns(t *testing.T) {
	dir := setupWorkDir(t, buildTasks)

	readEvents := func() []trace.Event {
		res, _, err := run(t, "run", "--workdir", dir, "--trace", "traces/../trace.json")
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dir, "trace.json"))
		require.NoError(t, err)
		var tr trace.RunTrace
		require.NoError(t, json.Unmarshal(b, &tr))
		assert.Equal(t, res.RunID, tr.RunID)
		return tr.Events
	}

	first := readEvents()
	second := readEvents()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestRun_RelativePathsResolveAgainstWorkDir(t *testing.T) {
	dir := setupWorkDir(t, buildTasks)
	writeFile(t, filepath.Join(dir, "conf", "other.yaml"), buildTasks)

	oldCwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldCwd) })

	res, _, err := run(t, "run", "-C", dir, "-f", "conf/other.yaml", "--metrics-file", "metrics/taskfiles.prom", "--no-state")
	require.NoError(t, err)
	assert.Equal(t, icl.ExitSuccess, res.ExitCode)

	b, err := os.ReadFile(filepath.Join(dir, "metrics", "taskfiles.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "taskfiles_task_outcomes_total")

	_, err = os.Stat(filepath.Join(dir, ".taskfiles"))
	assert.True(t, os.IsNotExist(err), "--no-state must not write run state")
}

func TestRun_FailingTaskIsStableAndStopsTheRun(t *testing.T) {
	dir := setupWorkDir(t, `
tasks:
  - name: broken
    run: exit 9
  - name: never
    run: "true"
`)

	res1, report, err := run(t, "run", "--workdir", dir)
	require.Error(t, err)
	res2, _, _ := run(t, "run", "--workdir", dir)

	assert.Equal(t, icl.ExitTaskFailure, res1.ExitCode)
	assert.Equal(t, icl.ExitTaskFailure, res2.ExitCode)
	assert.EqualValues(t, "failed", report.Run.Status)
	require.Len(t, report.Tasks, 1)
	assert.Equal(t, "Failed", report.Tasks[0].Phase)
	assert.Equal(t, 9, report.Tasks[0].ExitCode)
}

func TestRun_MissingDeclaredOutputIsTaskFailure(t *testing.T) {
	dir := setupWorkDir(t, `
tasks:
  - name: lazy
    run: "true"
    outputs: [missing.bin]
`)
	res, report, err := run(t, "run", "--workdir", dir)
	require.Error(t, err)
	assert.Equal(t, icl.ExitTaskFailure, res.ExitCode)
	require.Len(t, report.Tasks, 1)
	assert.Contains(t, report.Tasks[0].Error, "missing.bin")
}

func TestRun_SelectsNamedTasks(t *testing.T) {
	dir := setupWorkDir(t, buildTasks)

	_, report, err := run(t, "run", "--workdir", dir, "gen")
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, report.Run.Tasks)

	res, _, err := run(t, "run", "--workdir", dir, "nope")
	require.Error(t, err)
	assert.Equal(t, icl.ExitInvalidInvocation, res.ExitCode)
}

func TestRun_ConfigErrorsExit3(t *testing.T) {
	dir := setupWorkDir(t, "tasks:\n  - name: a\n    run: x\n    unknown_key: 1\n")
	res, _, err := run(t, "run", "--workdir", dir)
	require.Error(t, err)
	assert.Equal(t, icl.ExitConfigError, res.ExitCode)

	res, _, err = run(t, "run", "--workdir", dir, "-f", "absent.yaml")
	require.Error(t, err)
	assert.Equal(t, icl.ExitConfigError, res.ExitCode)
}

func TestInvalidInvocation_DeterministicAndExplainable(t *testing.T) {
	cases := [][]string{
		{"run"},
		{"run", "--workdir", "relative/dir"},
		{"run", "--workdir", t.TempDir(), "--bogus"},
		{"frobnicate"},
	}
	for _, args := range cases {
		res1, err1 := icl.Run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{})
		res2, err2 := icl.Run(context.Background(), args, &bytes.Buffer{}, &bytes.Buffer{})
		assert.Equal(t, icl.ExitInvalidInvocation, res1.ExitCode, "%v", args)
		assert.Equal(t, icl.ExitInvalidInvocation, res2.ExitCode, "%v", args)
		require.Error(t, err1)
		require.Error(t, err2)
		assert.Equal(t, err1.Error(), err2.Error())
	}
}

func TestHelpExitsZero(t *testing.T) {
	var stdout bytes.Buffer
	res, err := icl.Run(context.Background(), []string{"--help"}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, icl.ExitSuccess, res.ExitCode)
	assert.True(t, strings.Contains(stdout.String(), "inspect"))
}

func TestInspect_LatestAndByID(t *testing.T) {
	dir := setupWorkDir(t, buildTasks)

	res, _, err := run(t, "inspect", "--workdir", dir)
	require.Error(t, err)
	assert.Equal(t, icl.ExitInvalidInvocation, res.ExitCode)

	first, _, err := run(t, "run", "--workdir", dir, "gen")
	require.NoError(t, err)
	second, ran, err := run(t, "run", "--workdir", dir)
	require.NoError(t, err)

	_, latest, err := run(t, "inspect", "--workdir", dir)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.Run.RunID)
	assert.Equal(t, ran.Tasks, latest.Tasks)

	_, byID, err := run(t, "inspect", "--workdir", dir, first.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, byID.Run.Tasks)
	require.Len(t, byID.Tasks, 1)

	res, _, err = run(t, "inspect", "--workdir", dir, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.Equal(t, icl.ExitInvalidInvocation, res.ExitCode)
}
