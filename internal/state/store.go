package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNoRuns is returned by LatestRun when nothing has been recorded yet.
	ErrNoRuns = errors.New("no runs recorded")
	// ErrInvalidRunID is returned when a run ID is not a UUID.
	ErrInvalidRunID = errors.New("run id must be a UUID")
)

// Store provides persistent storage for run manifests.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("baseDir is required")
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) runsRootDir() string {
	return filepath.Join(s.baseDir, ".taskfiles", "runs")
}

func (s *Store) runDir(runID string) string {
	return filepath.Join(s.runsRootDir(), runID)
}

func (s *Store) runPath(runID string) string {
	return filepath.Join(s.runDir(runID), "run.json")
}

func (s *Store) taskPath(runID, name string) string {
	return filepath.Join(s.runDir(runID), "tasks", name+".json")
}

// ListRunIDs returns all run IDs currently present on disk, sorted lexicographically.
func (s *Store) ListRunIDs() ([]string, error) {
	if s == nil {
		return nil, errors.New("nil Store")
	}
	entries, err := os.ReadDir(s.runsRootDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.TrimSpace(e.Name()) == "" {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// LatestRun returns the run with the most recent start time.
// Directories without a readable run.json are ignored.
func (s *Store) LatestRun() (Run, error) {
	ids, err := s.ListRunIDs()
	if err != nil {
		return Run{}, err
	}
	var latest Run
	found := false
	for _, id := range ids {
		run, err := s.LoadRun(id)
		if err != nil {
			continue
		}
		if !found || run.StartTime.After(latest.StartTime) {
			latest, found = run, true
		}
	}
	if !found {
		return Run{}, ErrNoRuns
	}
	return latest, nil
}

func (s *Store) SaveRun(run Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	if err := ensureDirDurable(s.runDir(run.RunID), 0o755); err != nil {
		return fmt.Errorf("ensure run dir: %w", err)
	}
	data, err := jsonMarshalStable(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := writeFileAtomicDurable(s.runPath(run.RunID), data, 0o644); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

func (s *Store) LoadRun(runID string) (Run, error) {
	var run Run
	if _, err := uuid.Parse(runID); err != nil {
		return Run{}, fmt.Errorf("run id %q: %w", runID, ErrInvalidRunID)
	}
	if err := readJSONStrict(s.runPath(runID), &run); err != nil {
		return Run{}, err
	}
	if err := run.Validate(); err != nil {
		return Run{}, fmt.Errorf("invalid run on disk: %w", err)
	}
	return run, nil
}

// SaveTask writes the manifest of one task. Nil slices are stored as [].
func (s *Store) SaveTask(runID string, rec TaskRecord) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("runID is required")
	}
	if rec.InputFiles == nil {
		rec.InputFiles = []string{}
	}
	if rec.RegisteredOutputs == nil {
		rec.RegisteredOutputs = []string{}
	}
	if rec.OutputFiles == nil {
		rec.OutputFiles = []string{}
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}
	path := s.taskPath(runID, rec.Name)
	if err := ensureDirDurable(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure tasks dir: %w", err)
	}
	data, err := jsonMarshalStable(rec)
	if err != nil {
		return fmt.Errorf("marshal task record: %w", err)
	}
	if err := writeFileAtomicDurable(path, data, 0o644); err != nil {
		return fmt.Errorf("write task record: %w", err)
	}
	return nil
}

func (s *Store) LoadTask(runID, name string) (TaskRecord, error) {
	var rec TaskRecord
	if strings.TrimSpace(runID) == "" {
		return TaskRecord{}, errors.New("runID is required")
	}
	if strings.TrimSpace(name) == "" {
		return TaskRecord{}, errors.New("task name is required")
	}
	if err := readJSONStrict(s.taskPath(runID, name), &rec); err != nil {
		return TaskRecord{}, err
	}
	if err := rec.Validate(); err != nil {
		return TaskRecord{}, fmt.Errorf("invalid task record on disk: %w", err)
	}
	return rec, nil
}

// LoadTasks loads the records of every task listed in the run, in run order.
// Tasks that never got a record (the run stopped before them) are omitted.
func (s *Store) LoadTasks(run Run) ([]TaskRecord, error) {
	out := make([]TaskRecord, 0, len(run.Tasks))
	for _, name := range run.Tasks {
		rec, err := s.LoadTask(run.RunID, name)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("load task %q: %w", name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func jsonMarshalStable(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func readJSONStrict(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON: trailing content")
	}
	return nil
}

func ensureDirDurable(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if err := fsyncDir(dir); err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	if parent != dir {
		if err := fsyncDir(parent); err != nil {
			return err
		}
	}
	return nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
