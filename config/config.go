package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MudgalLabs/arthveda-sub000/position"
)

// MaxDebounce is the longest quiet period the draft editor accepts.
const MaxDebounce = 5 * time.Second

// Config represents the complete application configuration
type Config struct {
	Compute ComputeConfig `json:"compute" yaml:"compute"`
	Draft   DraftConfig   `json:"draft" yaml:"draft"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// ComputeConfig selects the computation service
type ComputeConfig struct {
	Mode    string `json:"mode" yaml:"mode"` // "local" or "remote"
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout string `json:"timeout" yaml:"timeout"` // e.g. "10s"
}

// TimeoutDuration converts the timeout string to time.Duration
func (c ComputeConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// DraftConfig contains editor defaults
type DraftConfig struct {
	Debounce   string `json:"debounce" yaml:"debounce"` // e.g. "500ms"
	Currency   string `json:"currency" yaml:"currency"`
	Instrument string `json:"instrument" yaml:"instrument"`
}

func (d DraftConfig) DebounceDuration() (time.Duration, error) {
	if d.Debounce == "" {
		return 0, nil
	}
	return time.ParseDuration(d.Debounce)
}

// JournalConfig locates the position database
type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envFiles (".env" when none are given) and lets ARTHVEDA_*
// variables override the file settings. Missing env files are ignored.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load env file %s: %w", f, err)
			}
		}
	}

	if v := os.Getenv("ARTHVEDA_COMPUTE_URL"); v != "" {
		c.Compute.BaseURL = v
		c.Compute.Mode = "remote"
	}
	if v := os.Getenv("ARTHVEDA_COMPUTE_TOKEN"); v != "" {
		c.Compute.Token = v
	}
	if v := os.Getenv("ARTHVEDA_DB_PATH"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("ARTHVEDA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return c.Validate()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Compute.Mode {
	case "local":
	case "remote":
		if c.Compute.BaseURL == "" {
			return fmt.Errorf("compute.base_url required for remote mode")
		}
	default:
		return fmt.Errorf("compute.mode must be 'local' or 'remote'")
	}
	if d, err := c.Compute.TimeoutDuration(); err != nil {
		return fmt.Errorf("compute.timeout: %w", err)
	} else if d < 0 {
		return fmt.Errorf("compute.timeout must not be negative")
	}

	d, err := c.Draft.DebounceDuration()
	if err != nil {
		return fmt.Errorf("draft.debounce: %w", err)
	}
	if d <= 0 || d > MaxDebounce {
		return fmt.Errorf("draft.debounce must be within (0, %s]", MaxDebounce)
	}
	if c.Draft.Currency == "" {
		return fmt.Errorf("draft.currency is required")
	}
	if !position.Instrument(c.Draft.Instrument).Valid() {
		return fmt.Errorf("unknown instrument: %s", c.Draft.Instrument)
	}

	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Compute: ComputeConfig{
			Mode:    "local",
			Timeout: "10s",
		},
		Draft: DraftConfig{
			Debounce:   "500ms",
			Currency:   "INR",
			Instrument: string(position.InstrumentEquity),
		},
		Journal: JournalConfig{
			DBPath: "./arthveda.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
