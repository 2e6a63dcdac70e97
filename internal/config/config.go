// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIToken       string `yaml:"-"` // Loaded from environment
}

// Timeout returns the backend request timeout, defaulting to 5s.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type RefundConfig struct {
	// Timezone for booking dates that carry no offset.
	Timezone string `yaml:"timezone"`
	// WindowHours seeds the platform cancellation window when the backend
	// settings API has not been synced yet. Nil leaves it unset.
	WindowHours *float64 `yaml:"window_hours,omitempty"`
}

type EmailConfig struct {
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	ReplyTo         string `yaml:"reply_to"`
	AccessKeyID     string `yaml:"-"` // Loaded from environment
	SecretAccessKey string `yaml:"-"` // Loaded from environment
}

// Enabled reports whether SES credentials are present.
func (e EmailConfig) Enabled() bool {
	return e.AccessKeyID != "" && e.SecretAccessKey != "" && e.Region != "" && e.Sender != ""
}

type SchedulerConfig struct {
	SettingsSyncCron string `yaml:"settings_sync_cron"`
}

type RateLimitConfig struct {
	EligibilityPerHour int  `yaml:"eligibility_per_hour"`
	CancelPerHour      int  `yaml:"cancel_per_hour"`
	TrustProxy         bool `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		StaticDir   string `yaml:"static_dir"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Backend   BackendConfig   `yaml:"backend"`
	Refund    RefundConfig    `yaml:"refund"`
	Email     EmailConfig     `yaml:"email"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Auth struct {
		ClerkSecretKey string `yaml:"-"` // Loaded from environment
	} `yaml:"-"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Backend.APIToken = os.Getenv("BACKEND_API_TOKEN")
	cfg.Email.AccessKeyID = os.Getenv("AWS_SES_ACCESS_KEY_ID")
	cfg.Email.SecretAccessKey = os.Getenv("AWS_SES_SECRET_ACCESS_KEY")
	cfg.Auth.ClerkSecretKey = os.Getenv("CLERK_SECRET_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Refund.Timezone == "" {
		c.Refund.Timezone = "Local"
	}
	if c.Scheduler.SettingsSyncCron == "" {
		c.Scheduler.SettingsSyncCron = "*/10 * * * *"
	}
	if c.RateLimit.EligibilityPerHour == 0 {
		c.RateLimit.EligibilityPerHour = 120
	}
	if c.RateLimit.CancelPerHour == 0 {
		c.RateLimit.CancelPerHour = 20
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
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

	if _, err := c.Location(); err != nil {
		return err
	}
	if w := c.Refund.WindowHours; w != nil && *w < 0 {
		return fmt.Errorf("refund window_hours must not be negative")
	}
	if base := strings.TrimSpace(c.Backend.BaseURL); base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("backend base_url must be an http(s) URL")
	}
	if _, err := cron.ParseStandard(c.Scheduler.SettingsSyncCron); err != nil {
		return fmt.Errorf("invalid settings_sync_cron %q: %w", c.Scheduler.SettingsSyncCron, err)
	}
	if c.RateLimit.EligibilityPerHour < 0 || c.RateLimit.CancelPerHour < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}

// Location loads the configured refund timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Refund.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid refund timezone %q: %w", c.Refund.Timezone, err)
	}
	return loc, nil
}
