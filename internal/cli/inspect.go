package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"taskfiles/internal/state"
)

type InspectCmd struct {
	Workdir string `short:"C" help:"Absolute working directory holding .taskfiles/."`
	RunID   string `arg:"" optional:"" name:"run-id" help:"Run to print. Defaults to the most recent."`
}

func (c *InspectCmd) Run(rt *runtime) error {
	workDir, err := canonicalWorkDir(c.Workdir)
	if err != nil {
		return err
	}
	store, err := state.NewStore(workDir)
	if err != nil {
		return err
	}

	var run state.Run
	if c.RunID == "" {
		run, err = store.LatestRun()
		if errors.Is(err, state.ErrNoRuns) {
			return invalidInvocationf("no runs recorded under %s", workDir)
		}
	} else {
		run, err = store.LoadRun(c.RunID)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, state.ErrInvalidRunID) {
			return invalidInvocationf("unknown run %q", c.RunID)
		}
	}
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	rt.result.RunID = run.RunID

	records, err := store.LoadTasks(run)
	if err != nil {
		return err
	}
	return writeJSON(rt.stdout, Report{Run: run, Tasks: records})
}
