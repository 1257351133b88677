package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_BOT_TOKEN", "123:abc")

	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  bot_token: "${TEST_BOT_TOKEN}"
database:
  path: "` + filepath.Join(dir, "data", "bot.db") + `"
limits:
  free_goals: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, 5, cfg.Limits.FreeGoals)
	// Unset limits fall back to the free-tier defaults.
	assert.Equal(t, 3, cfg.Limits.FreeHabits)
	assert.Equal(t, 2, cfg.Limits.FreeMoodDaily)
	// Database directory is created.
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	var cfg Config
	cfg.Telegram.Admins = []int64{1, 2}
	assert.True(t, cfg.IsAdmin(1))
	assert.False(t, cfg.IsAdmin(3))
}

func TestLoadTimezonesDefaultsAndValidation(t *testing.T) {
	opts, err := LoadTimezones("")
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	dir := t.TempDir()
	path := filepath.Join(dir, "timezones.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezones:
  - label: "India"
    zone: "Asia/Kolkata"
`), 0o644))

	opts, err = LoadTimezones(path)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Asia/Kolkata", opts[0].Zone)

	require.NoError(t, os.WriteFile(path, []byte(`
timezones:
  - label: "Bad"
    zone: "Not/AZone"
`), 0o644))
	_, err = LoadTimezones(path)
	assert.Error(t, err)

	// Missing file falls back to the built-in list.
	opts, err = LoadTimezones(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}
