package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		Debug    bool    `yaml:"debug"`
		Admins   []int64 `yaml:"admins"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	AI struct {
		Enabled         bool   `yaml:"enabled"`
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		Model           string `yaml:"model"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"ai"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Limits struct {
		FreeGoals     int `yaml:"free_goals"`
		FreeHabits    int `yaml:"free_habits"`
		FreeMoodDaily int `yaml:"free_mood_daily"`
	} `yaml:"limits"`

	Sender struct {
		Rate  float64 `yaml:"rate"`
		Burst int     `yaml:"burst"`
	} `yaml:"sender"`

	Google struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsPath string `yaml:"credentials_path"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"google"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/soulfriend.db"
	}
	if cfg.Limits.FreeGoals <= 0 {
		cfg.Limits.FreeGoals = 3
	}
	if cfg.Limits.FreeHabits <= 0 {
		cfg.Limits.FreeHabits = 3
	}
	if cfg.Limits.FreeMoodDaily <= 0 {
		cfg.Limits.FreeMoodDaily = 2
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsAdmin reports whether the owner is listed as a bot admin.
func (c *Config) IsAdmin(ownerID int64) bool {
	for _, id := range c.Telegram.Admins {
		if id == ownerID {
			return true
		}
	}
	return false
}
