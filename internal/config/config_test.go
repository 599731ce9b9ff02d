package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
app:
  name: chalkline
  environment: development
  port: 8080
  base_url: http://localhost:8080
database:
  driver: sqlite
  filename: data/chalkline.db
sessions:
  ttl: 2h
  cleanup_schedule: "*/5 * * * *"
`

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func setSecrets(t *testing.T) {
	t.Helper()

	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
}

func TestLoad(t *testing.T) {
	setSecrets(t)
	path := writeConfigFile(t, testYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.App.Name != "chalkline" || cfg.App.Port != 8080 {
		t.Fatalf("unexpected app config %+v", cfg.App)
	}
	if cfg.App.SessionSecret != "test-secret" {
		t.Fatal("expected session secret from environment")
	}
	if cfg.Google.ClientID != "test-client-id" {
		t.Fatal("expected google client id from environment")
	}
	if cfg.Sessions.TTL != 2*time.Hour {
		t.Fatalf("unexpected session ttl %v", cfg.Sessions.TTL)
	}
	if cfg.Sessions.CleanupSchedule != "*/5 * * * *" {
		t.Fatalf("unexpected cleanup schedule %q", cfg.Sessions.CleanupSchedule)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	setSecrets(t)
	path := writeConfigFile(t, `
app:
  name: chalkline
  port: 8080
  base_url: http://localhost:8080
database:
  driver: sqlite
  filename: data/chalkline.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Sessions.TTL != 8*time.Hour {
		t.Fatalf("expected default ttl, got %v", cfg.Sessions.TTL)
	}
	if cfg.Sessions.CleanupSchedule != "*/15 * * * *" {
		t.Fatalf("expected default cleanup schedule, got %q", cfg.Sessions.CleanupSchedule)
	}
	if cfg.App.ClientBaseURL != cfg.App.BaseURL {
		t.Fatalf("expected client base url to default to base url, got %q", cfg.App.ClientBaseURL)
	}
}

func TestLoadFailsWithoutSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	path := writeConfigFile(t, testYAML)

	if _, err := Load(path); err == nil {
		t.Fatal("expected load to fail without secrets")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.App.Name = "chalkline"
		cfg.App.Port = 8080
		cfg.App.BaseURL = "http://localhost:8080"
		cfg.App.SessionSecret = "secret"
		cfg.Google.ClientID = "id"
		cfg.Google.ClientSecret = "secret"
		cfg.Database.Driver = "sqlite"
		cfg.Database.Filename = "data/chalkline.db"
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing name", func(c *Config) { c.App.Name = "" }},
		{"missing port", func(c *Config) { c.App.Port = 0 }},
		{"missing base url", func(c *Config) { c.App.BaseURL = "" }},
		{"missing session secret", func(c *Config) { c.App.SessionSecret = "" }},
		{"missing client id", func(c *Config) { c.Google.ClientID = "" }},
		{"missing client secret", func(c *Config) { c.Google.ClientSecret = "" }},
		{"missing driver", func(c *Config) { c.Database.Driver = "" }},
		{"unsupported driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"sqlite without filename", func(c *Config) { c.Database.Filename = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
