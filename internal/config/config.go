// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/scoring"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig     `mapstructure:"database"`
	Server    ServerConfig       `mapstructure:"server"`
	Logging   LoggingConfig      `mapstructure:"logging"`
	Scoring   scoring.Thresholds `mapstructure:"scoring"`
	Scheduler SchedulerConfig    `mapstructure:"scheduler"`
	Coach     CoachConfig        `mapstructure:"coach"`
}

// DatabaseConfig holds the journal database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig mirrors logging.LogConfig in the config file.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	JSON       bool   `mapstructure:"json"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// SchedulerConfig holds the periodic summary recomputation settings.
type SchedulerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Users   []string `mapstructure:"users"`
	// Schedules maps a period type to a six-field cron spec.
	Schedules  map[string]string `mapstructure:"schedules"`
	MaxHistory int               `mapstructure:"max_history"`
}

// CoachConfig holds the LLM coach settings.
type CoachConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"-" json:"-"` // env or .env only
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Default returns the configuration used when no config file overrides it.
func Default() *Config {
	return defaultsFor(DefaultConfigDir())
}

// defaultsFor returns the defaults with the database and log file placed
// under configDir.
func defaultsFor(configDir string) *Config {
	logDefaults := logging.DefaultLogConfig()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(configDir, "journal.db"),
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      logDefaults.Level,
			Console:    logDefaults.Console,
			File:       logDefaults.File,
			FilePath:   filepath.Join(configDir, "logs", "journal.log"),
			MaxSize:    logDefaults.MaxSize,
			MaxBackups: logDefaults.MaxBackups,
			MaxAge:     logDefaults.MaxAge,
		},
		Scoring: scoring.DefaultThresholds(),
		Scheduler: SchedulerConfig{
			Enabled: false,
			Schedules: map[string]string{
				string(models.PeriodDaily):   "0 5 0 * * *",
				string(models.PeriodWeekly):  "0 10 0 * * MON",
				string(models.PeriodMonthly): "0 15 0 1 * *",
			},
			MaxHistory: 100,
		},
		Coach: CoachConfig{
			Enabled:     false,
			Model:       "gpt-4o-mini",
			MaxTokens:   800,
			Temperature: 0.4,
			MaxRetries:  3,
			Timeout:     60 * time.Second,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a commented template and defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := loadDotEnv(configDir); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := defaultsFor(configDir)
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env from the config directory, then from the working
// directory. Variables already set in the environment win.
func loadDotEnv(configDir string) error {
	for _, path := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if _, terr := createTemplateConfig(configDir, name); terr != nil {
				return terr
			}
			return nil
		}
		return err
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database.path", cfg.Database.Path)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.json", cfg.Logging.JSON)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)

	th := cfg.Scoring
	v.SetDefault("scoring.min_edge_sample", th.MinEdgeSample)
	v.SetDefault("scoring.insufficient_sample_score", th.InsufficientSampleScore)
	v.SetDefault("scoring.edge_strong", th.EdgeStrong)
	v.SetDefault("scoring.edge_moderate", th.EdgeModerate)
	v.SetDefault("scoring.edge_weak", th.EdgeWeak)
	v.SetDefault("scoring.consistency_high", th.ConsistencyHigh)
	v.SetDefault("scoring.consistency_moderate", th.ConsistencyModerate)
	v.SetDefault("scoring.decision_ratio_high", th.DecisionRatioHigh)
	v.SetDefault("scoring.decision_ratio_low", th.DecisionRatioLow)
	v.SetDefault("scoring.good_decision_score", th.GoodDecisionScore)
	v.SetDefault("scoring.max_standard_volume", th.MaxStandardVolume)

	v.SetDefault("scheduler.enabled", cfg.Scheduler.Enabled)
	v.SetDefault("scheduler.users", cfg.Scheduler.Users)
	v.SetDefault("scheduler.schedules", cfg.Scheduler.Schedules)
	v.SetDefault("scheduler.max_history", cfg.Scheduler.MaxHistory)

	v.SetDefault("coach.enabled", cfg.Coach.Enabled)
	v.SetDefault("coach.model", cfg.Coach.Model)
	v.SetDefault("coach.max_tokens", cfg.Coach.MaxTokens)
	v.SetDefault("coach.temperature", cfg.Coach.Temperature)
	v.SetDefault("coach.max_retries", cfg.Coach.MaxRetries)
	v.SetDefault("coach.timeout", cfg.Coach.Timeout)
	v.SetDefault("coach.base_url", cfg.Coach.BaseURL)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JOURNAL_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Coach.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Coach.BaseURL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return invalid("database.path must not be empty")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return invalid("server.addr must not be empty")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("invalid logging.level: %s", c.Logging.Level)
	}

	th := c.Scoring
	if th.MinEdgeSample < 1 {
		return invalid("scoring.min_edge_sample must be at least 1")
	}
	for name, v := range map[string]int{
		"insufficient_sample_score": th.InsufficientSampleScore,
		"edge_strong":               th.EdgeStrong,
		"edge_moderate":             th.EdgeModerate,
		"edge_weak":                 th.EdgeWeak,
		"good_decision_score":       th.GoodDecisionScore,
	} {
		if v < 0 || v > 100 {
			return invalid("scoring.%s must be between 0 and 100", name)
		}
	}
	if !(th.EdgeWeak <= th.EdgeModerate && th.EdgeModerate <= th.EdgeStrong) {
		return invalid("scoring edge tiers must satisfy edge_weak <= edge_moderate <= edge_strong")
	}
	if th.ConsistencyModerate < 0 || th.ConsistencyHigh > 100 || th.ConsistencyModerate > th.ConsistencyHigh {
		return invalid("scoring consistency tiers must satisfy 0 <= consistency_moderate <= consistency_high <= 100")
	}
	if th.DecisionRatioLow < 0 || th.DecisionRatioHigh > 1 || th.DecisionRatioLow > th.DecisionRatioHigh {
		return invalid("scoring decision ratio tiers must satisfy 0 <= decision_ratio_low <= decision_ratio_high <= 1")
	}
	if th.MaxStandardVolume < 0 {
		return invalid("scoring.max_standard_volume must be non-negative")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for period, spec := range c.Scheduler.Schedules {
		if !models.PeriodType(period).Valid() {
			return invalid("unknown period type in scheduler.schedules: %s", period)
		}
		if _, err := parser.Parse(spec); err != nil {
			return invalid("invalid cron spec for %s: %v", period, err)
		}
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Users) == 0 {
		return invalid("scheduler.users must list at least one user when the scheduler is enabled")
	}

	if c.Coach.Enabled {
		if c.Coach.Model == "" {
			return invalid("coach.model must be set when the coach is enabled")
		}
		if c.Coach.Temperature < 0 || c.Coach.Temperature > 2 {
			return invalid("coach.temperature must be between 0 and 2")
		}
	}

	return nil
}

// LogConfig converts the logging section into a logging.LogConfig.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    c.Logging.Console,
		JSON:       c.Logging.JSON,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// CoachAvailable reports whether the coach is enabled and has a key.
func (c *Config) CoachAvailable() bool {
	return c.Coach.Enabled && c.Coach.APIKey != ""
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(errors.ErrConfigInvalid, format, args...)
}
