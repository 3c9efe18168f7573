package environment_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/programme-lv/grader/internal/environment"
)

// isolate points every lookup location at empty temporary directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := environment.Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.TimeLimitMs)
	assert.Equal(t, 256, cfg.MemoryLimitMb)
	assert.Equal(t, "g++", cfg.Compiler.Path)
	assert.Equal(t, []string{"-std=c++17", "-O2"}, cfg.Compiler.Flags)
	assert.Equal(t, filepath.Join(dir, "cache", "grader", "artifacts"), cfg.CacheDir)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.False(t, cfg.Tests.Zstd)
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
time_limit_ms = 2000
memory_limit_mb = 64
log_level = "debug"

[compiler]
path = "clang++"
flags = ["-O0"]

[report]
nats_url = "nats://localhost:4222"

[tests]
zstd = true
`), 0o644))
	t.Setenv("GRADER_MEMORY_LIMIT_MB", "128")
	t.Setenv("GRADER_COMPILER_FLAGS", "-O1 -g")

	cfg, err := environment.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.TimeLimitMs)
	assert.Equal(t, 128, cfg.MemoryLimitMb)
	assert.Equal(t, "clang++", cfg.Compiler.Path)
	assert.Equal(t, []string{"-O1", "-g"}, cfg.Compiler.Flags)
	assert.Equal(t, "nats://localhost:4222", cfg.Report.NatsUrl)
	assert.Equal(t, "grader.events", cfg.Report.NatsSubject)
	assert.True(t, cfg.Tests.Zstd)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadDefaultConfigFile(t *testing.T) {
	isolate(t)
	path := environment.DefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("poll_interval_ms = 2\n"), 0o644))

	cfg, err := environment.Load("")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.PollIntervalMs)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GRADER_TIME_LIMIT_MS=750\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GRADER_TIME_LIMIT_MS") })

	cfg, err := environment.Load("")
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.TimeLimitMs)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := environment.Load(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)

	t.Setenv("GRADER_TIME_LIMIT_MS", "soon")
	_, err := environment.Load("")
	require.Error(t, err)

	t.Setenv("GRADER_TIME_LIMIT_MS", "0")
	_, err = environment.Load("")
	require.Error(t, err)

	t.Setenv("GRADER_TIME_LIMIT_MS", "")
	t.Setenv("GRADER_LOG_LEVEL", "loud")
	_, err = environment.Load("")
	require.Error(t, err)
}
