package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "3100", env.HTTPPort)
	assert.Equal(t, "yaml", env.TaskStore)
	assert.Equal(t, 60*time.Second, env.CompletionEnv.Timeout)
	assert.Equal(t, 3, env.MaxAttempts)
	assert.Equal(t, 5*time.Second, env.ScheduleDebounce)
	assert.Equal(t, time.Minute, env.ScheduleCooldown)
	assert.Equal(t, 8, env.PersistConcurrency)
	assert.Equal(t, time.UTC, env.Location())
}

func TestLoadEnvDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("EISENHOWER_SCHEDULE_COOLDOWN=90s\nEISENHOWER_LOG_LEVEL=warn\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("EISENHOWER_SCHEDULE_COOLDOWN")
		os.Unsetenv("EISENHOWER_LOG_LEVEL")
	})

	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, env.ScheduleCooldown)
	assert.Equal(t, slog.LevelWarn, env.SlogLevel())
}

func TestLoadEnvValidation(t *testing.T) {
	t.Setenv("EISENHOWER_TASK_STORE", "postgres")
	_, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("EISENHOWER_TASK_STORE", "yaml")
	t.Setenv("EISENHOWER_TIMEZONE", "Mars/Olympus")
	_, err = LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "TIMEZONE")
}
