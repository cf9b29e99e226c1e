package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[database]
# SQLite database file
# path = "~/.config/trade-journal/journal.db"

[server]
addr = ":8080"
read_timeout = "15s"
write_timeout = "30s"
shutdown_timeout = "10s"

[logging]
# debug, info, warn, error
level = "info"
console = true
# Emit JSON lines on the console instead of the coloured writer
json = false
file = true
max_size = 100
max_backups = 7
max_age = 30

[scoring]
# Trades needed before edge confidence is computed
min_edge_sample = 10
# Edge confidence reported below the minimum sample
insufficient_sample_score = 20
# Edge confidence tiers
edge_strong = 80
edge_moderate = 60
edge_weak = 40
# Consistency tiers
consistency_high = 80.0
consistency_moderate = 50.0
# Good decision ratio tiers
decision_ratio_high = 0.7
decision_ratio_low = 0.4
# Decision score at or above which a decision counts as good
good_decision_score = 60
# Largest position volume still considered normally sized
max_standard_volume = 2.0

[scheduler]
enabled = false
# Users whose period summaries are recomputed
users = []
max_history = 100

# Six-field cron specs (with seconds) per period type
[scheduler.schedules]
daily = "0 5 0 * * *"
weekly = "0 10 0 * * MON"
monthly = "0 15 0 1 * *"

[coach]
# Narrative period reviews; requires OPENAI_API_KEY in the environment or .env
enabled = false
model = "gpt-4o-mini"
max_tokens = 800
temperature = 0.4
max_retries = 3
timeout = "60s"
`

const envTemplate = `# Trade Journal secrets
# WARNING: Keep this file secure! Do not commit to version control.
OPENAI_API_KEY=
`

// createTemplateConfig writes a commented config.toml and an empty .env into
// configDir and returns the config path. An existing .env is left alone.
func createTemplateConfig(configDir, name string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Restricted permissions for the secrets file
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return "", fmt.Errorf("writing .env template: %w", err)
		}
	}

	return path, nil
}

// ConfigFile returns the path of config.toml in configDir.
func ConfigFile(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}
