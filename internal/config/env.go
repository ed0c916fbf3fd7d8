package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvLogLevel  = "TASKFILES_LOG_LEVEL"
	EnvLogFormat = "TASKFILES_LOG_FORMAT"
)

var envFiles = []string{".env", ".env.local"}

// LoadEnv loads .env and .env.local from dir into the process environment.
// Variables already set are not overwritten. It returns the files that were loaded.
func LoadEnv(dir string) ([]string, error) {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// ApplyEnvOverrides replaces settings with values from the environment when set.
func (s *Settings) ApplyEnvOverrides() {
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		s.LogLevel = NormalizeLogLevel(v)
	}
	if v, ok := os.LookupEnv(EnvLogFormat); ok && v != "" {
		s.LogFormat = NormalizeLogFormat(v)
	}
}
