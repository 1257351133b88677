package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TimezoneOption is one entry of the timezone picker keyboard.
type TimezoneOption struct {
	Label string `yaml:"label"` // shown to the user, e.g. "🇮🇳 India (IST)"
	Zone  string `yaml:"zone"`  // IANA name, e.g. "Asia/Kolkata"
}

// TimezonesConfig is the root of timezones.yaml.
type TimezonesConfig struct {
	Timezones []TimezoneOption `yaml:"timezones"`
}

// defaultTimezones backs the picker when no config file is present.
var defaultTimezones = []TimezoneOption{
	{Label: "🇬🇧 London", Zone: "Europe/London"},
	{Label: "🇩🇪 Berlin", Zone: "Europe/Berlin"},
	{Label: "🇷🇺 Moscow", Zone: "Europe/Moscow"},
	{Label: "🇮🇳 India", Zone: "Asia/Kolkata"},
	{Label: "🇸🇬 Singapore", Zone: "Asia/Singapore"},
	{Label: "🇯🇵 Tokyo", Zone: "Asia/Tokyo"},
	{Label: "🇦🇺 Sydney", Zone: "Australia/Sydney"},
	{Label: "🇺🇸 New York", Zone: "America/New_York"},
	{Label: "🇺🇸 Chicago", Zone: "America/Chicago"},
	{Label: "🇺🇸 Los Angeles", Zone: "America/Los_Angeles"},
	{Label: "🇧🇷 São Paulo", Zone: "America/Sao_Paulo"},
	{Label: "🌍 UTC", Zone: "UTC"},
}

// DefaultTimezones returns the built-in picker list.
func DefaultTimezones() []TimezoneOption {
	return defaultTimezones
}

// LoadTimezones reads the picker list from YAML, validating every zone
// name against the tz database. An empty path returns the built-in list.
func LoadTimezones(path string) ([]TimezoneOption, error) {
	if path == "" {
		return defaultTimezones, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTimezones, nil
		}
		return nil, fmt.Errorf("read timezones config: %w", err)
	}

	var cfg TimezonesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse timezones config: %w", err)
	}
	if len(cfg.Timezones) == 0 {
		return defaultTimezones, nil
	}

	for _, opt := range cfg.Timezones {
		if _, err := time.LoadLocation(opt.Zone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", opt.Zone, err)
		}
	}
	return cfg.Timezones, nil
}
