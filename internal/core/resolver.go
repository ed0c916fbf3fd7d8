package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// InputResolver expands declared input patterns into concrete input files.
type InputResolver struct {
	// BaseDir is the directory relative patterns are resolved against.
	BaseDir string
}

// NewInputResolver creates a new InputResolver with the given base directory.
func NewInputResolver(baseDir string) *InputResolver {
	return &InputResolver{BaseDir: baseDir}
}

// Apply adds the files named by patterns to task's input set.
//
// A pattern without glob characters is a literal path and goes straight to
// AddInputFile, so a missing literal fails with a *fileset.NotFoundError.
// A glob adds every matching regular file and may match nothing; directories
// matched by a glob are skipped (declare them in InputDirs instead).
func (r *InputResolver) Apply(task *TrackedTask, patterns []string) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}
	for _, pattern := range patterns {
		full := r.abs(pattern)
		if !containsGlobChar(pattern) {
			if err := task.AddInputFile(full); err != nil {
				return err
			}
			continue
		}

		matches, err := r.expandGlob(full)
		if err != nil {
			return fmt.Errorf("expanding pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if err := task.AddInputFile(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandGlob returns the regular files matching pattern, sorted.
// filepath.Glob already sorts, but its order is not part of its contract.
func (r *InputResolver) expandGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			// Broken symlinks match a glob but name nothing.
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", m, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

func (r *InputResolver) abs(p string) string {
	if filepath.IsAbs(p) || r.BaseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(r.BaseDir, p)
}

// containsGlobChar returns true if the pattern contains glob special characters.
func containsGlobChar(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', ']':
			return true
		}
	}
	return false
}
