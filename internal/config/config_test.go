package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/scoring"
)

func TestLoad_CreatesTemplateAndUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.FileExists(t, filepath.Join(dir, ".env"))
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, scoring.DefaultThresholds(), cfg.Scoring)
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(dir, "logs", "journal.log"), cfg.Logging.FilePath)
	logDefaults := logging.DefaultLogConfig()
	assert.Equal(t, logDefaults.Level, cfg.Logging.Level)
	assert.Equal(t, logDefaults.MaxSize, cfg.Logging.MaxSize)
	assert.Equal(t, logDefaults.MaxBackups, cfg.Logging.MaxBackups)
	assert.Equal(t, logDefaults.MaxAge, cfg.Logging.MaxAge)

	// The written template must load back to the same values.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Scoring, again.Scoring)
	assert.Equal(t, 15*time.Second, again.Server.ReadTimeout)
	assert.Equal(t, "0 10 0 * * MON", again.Scheduler.Schedules["weekly"])
	assert.Equal(t, "gpt-4o-mini", again.Coach.Model)
}

func TestLoad_ReadsFileValues(t *testing.T) {
	dir := t.TempDir()
	content := `
[database]
path = "/tmp/journal-test.db"

[scoring]
min_edge_sample = 20
good_decision_score = 65

[scheduler]
enabled = true
users = ["u1", "u2"]

[scheduler.schedules]
daily = "0 0 1 * * *"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/journal-test.db", cfg.Database.Path)
	assert.Equal(t, 20, cfg.Scoring.MinEdgeSample)
	assert.Equal(t, 65, cfg.Scoring.GoodDecisionScore)
	assert.Equal(t, 20, cfg.Scoring.InsufficientSampleScore)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []string{"u1", "u2"}, cfg.Scheduler.Users)
	assert.Equal(t, "0 0 1 * * *", cfg.Scheduler.Schedules["daily"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_DB_PATH", "/tmp/override.db")
	t.Setenv("JOURNAL_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("JOURNAL_LOG_LEVEL", "debug")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sk-test", cfg.Coach.APIKey)
	assert.False(t, cfg.CoachAvailable())

	cfg.Coach.Enabled = true
	assert.True(t, cfg.CoachAvailable())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JOURNAL_SERVER_ADDR=:7070\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("JOURNAL_SERVER_ADDR") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[scoring]\nedge_strong = 150\n"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero sample", func(c *Config) { c.Scoring.MinEdgeSample = 0 }},
		{"sentinel out of range", func(c *Config) { c.Scoring.InsufficientSampleScore = 101 }},
		{"edge tiers inverted", func(c *Config) { c.Scoring.EdgeWeak = 90 }},
		{"consistency tiers inverted", func(c *Config) { c.Scoring.ConsistencyModerate = 90 }},
		{"ratio above one", func(c *Config) { c.Scoring.DecisionRatioHigh = 1.5 }},
		{"negative volume", func(c *Config) { c.Scoring.MaxStandardVolume = -1 }},
		{"unknown period", func(c *Config) { c.Scheduler.Schedules["hourly"] = "0 0 * * * *" }},
		{"bad cron spec", func(c *Config) { c.Scheduler.Schedules["daily"] = "every day" }},
		{"scheduler without users", func(c *Config) { c.Scheduler.Enabled = true }},
		{"coach without model", func(c *Config) { c.Coach.Enabled = true; c.Coach.Model = "" }},
	}

	require.NoError(t, Default().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
		})
	}
}

func TestLogConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.JSON = true

	lc := cfg.LogConfig()
	assert.Equal(t, "warn", lc.Level)
	assert.True(t, lc.JSON)
	assert.Equal(t, cfg.Logging.FilePath, lc.FilePath)
}
