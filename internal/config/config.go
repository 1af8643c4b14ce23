// ABOUTME: Configuration loading and parsing for coven-assist
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-assist configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Premium  PremiumConfig  `yaml:"premium"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Models   []ModelConfig  `yaml:"models"`
	Actions  []ActionConfig `yaml:"actions"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig holds remote engine configuration
type EngineConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// PremiumConfig holds entitlement cache configuration
type PremiumConfig struct {
	StatusURL       string        `yaml:"status_url"`
	RefreshInterval time.Duration `yaml:"-"`

	RefreshIntervalRaw string `yaml:"refresh_interval"`
}

// FeedbackConfig holds the feedback service endpoint. Empty URL disables
// rating and feedback delivery.
type FeedbackConfig struct {
	URL string `yaml:"url"`
}

// ModelConfig declares one catalog entry
type ModelConfig struct {
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	Maker     string `yaml:"maker"`
	Tier      string `yaml:"tier"` // basic | basic_and_premium | premium
	MaxLength int    `yaml:"max_content_length"`

	// Custom endpoint fields; when endpoint is set the model is custom
	Endpoint    string `yaml:"endpoint"`
	RequestName string `yaml:"request_name"`
	APIKey      string `yaml:"api_key"`
}

// ActionConfig declares one quick-action group
type ActionConfig struct {
	Category string              `yaml:"category"`
	Entries  []ActionEntryConfig `yaml:"entries"`
}

// ActionEntryConfig is a group entry: a subheading or a labeled action tag
type ActionEntryConfig struct {
	Label      string `yaml:"label"`
	Subheading bool   `yaml:"subheading"`
	ActionTag  string `yaml:"action_tag"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// DefaultConfig returns a configuration with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: "127.0.0.1:8985"},
		Database: DatabaseConfig{Path: "data/assist.db"},
		Engine:   EngineConfig{RequestTimeout: 60 * time.Second},
		Premium:  PremiumConfig{RefreshInterval: 5 * time.Minute},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	seen := make(map[string]bool)
	for i, m := range c.Models {
		if m.Key == "" {
			return fmt.Errorf("models[%d].key is required", i)
		}
		if seen[m.Key] {
			return fmt.Errorf("models[%d].key %q is duplicated", i, m.Key)
		}
		seen[m.Key] = true
		switch m.Tier {
		case "", "basic", "basic_and_premium", "premium":
		default:
			return fmt.Errorf("models[%d].tier %q is not one of basic, basic_and_premium, premium", i, m.Tier)
		}
	}

	for i, a := range c.Actions {
		if a.Category == "" {
			return fmt.Errorf("actions[%d].category is required", i)
		}
		for j, e := range a.Entries {
			if e.Label == "" {
				return fmt.Errorf("actions[%d].entries[%d].label is required", i, j)
			}
			if !e.Subheading && e.ActionTag == "" {
				return fmt.Errorf("actions[%d].entries[%d] needs an action_tag or subheading", i, j)
			}
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Engine.RequestTimeoutRaw != "" {
		cfg.Engine.RequestTimeout, err = time.ParseDuration(cfg.Engine.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Engine.RequestTimeoutRaw, err)
		}
	}

	if cfg.Premium.RefreshIntervalRaw != "" {
		cfg.Premium.RefreshInterval, err = time.ParseDuration(cfg.Premium.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Premium.RefreshIntervalRaw, err)
		}
	}

	return nil
}
