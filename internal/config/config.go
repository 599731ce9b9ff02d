// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type GoogleConfig struct {
	// Loaded from environment, never from the yaml file.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// Cron expression for pruning expired sessions.
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		// BaseURL is the externally reachable URL of this server, used to
		// build the OAuth callback URL.
		BaseURL string `yaml:"base_url"`
		// ClientBaseURL is where the browser is sent after a successful
		// login (the SPA).
		ClientBaseURL string `yaml:"client_base_url"`
		SessionSecret string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Google   GoogleConfig   `yaml:"google"`
	Sessions SessionConfig  `yaml:"sessions"`
}

// Load loads both .env and yaml configuration. Secrets come exclusively from
// the environment.
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.App.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.Google.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.Google.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = 8 * time.Hour
	}
	if c.Sessions.CleanupSchedule == "" {
		c.Sessions.CleanupSchedule = "*/15 * * * *"
	}
	if c.App.ClientBaseURL == "" {
		c.App.ClientBaseURL = c.App.BaseURL
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.BaseURL == "" {
		return fmt.Errorf("app base_url is required")
	}
	if c.App.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET environment variable is required")
	}
	if c.Google.ClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID environment variable is required")
	}
	if c.Google.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}
