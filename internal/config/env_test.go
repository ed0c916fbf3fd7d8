package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_DoesNotOverrideExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TASKFILES_TEST_A=from-file\nTASKFILES_TEST_B=\"quoted\"\n"), 0o644))

	t.Setenv("TASKFILES_TEST_A", "from-env")
	t.Setenv("TASKFILES_TEST_B", "")
	require.NoError(t, os.Unsetenv("TASKFILES_TEST_B"))

	loaded, err := LoadEnv(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, loaded)
	assert.Equal(t, "from-env", os.Getenv("TASKFILES_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("TASKFILES_TEST_B"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	loaded, err := LoadEnv(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSettings_ApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "Warning")
	t.Setenv(EnvLogFormat, "JSON")

	s := Settings{LogLevel: LogLevelDebug, LogFormat: LogFormatText}
	s.ApplyEnvOverrides()
	assert.Equal(t, LogLevelWarn, s.LogLevel)
	assert.Equal(t, LogFormatJSON, s.LogFormat)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogLevelError, NormalizeLogLevel(" ERROR "))
	assert.Equal(t, LogFormatText, NormalizeLogFormat("yaml"))
}

func TestNewLogger_RespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogLevelWarn, LogFormatJSON, &buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")

	out := strings.TrimSpace(buf.String())
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"k":"v"`)
}
