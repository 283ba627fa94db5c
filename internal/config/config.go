package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	GitHub  GitHubConfig  `yaml:"github"`
	Slack   SlackConfig   `yaml:"slack"`
	Events  EventsConfig  `yaml:"events"`
	Store   StoreConfig   `yaml:"store"`
	Digest  DigestConfig  `yaml:"digest"`
	Fanout  FanoutConfig  `yaml:"fanout"`
	Retry   RetryConfig   `yaml:"retry"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds listener settings for the webhook and admin surfaces.
type ServerConfig struct {
	Host        string `yaml:"host,omitempty"`
	WebhookPort int    `yaml:"webhook_port,omitempty"`
	AdminPort   int    `yaml:"admin_port,omitempty"`
}

// GitHubConfig holds GitHub API and webhook settings.
type GitHubConfig struct {
	Token         string `yaml:"token,omitempty"`
	APIURL        string `yaml:"api_url,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// SlackConfig holds outbound Slack delivery settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
}

// EventsConfig controls normalization behavior.
type EventsConfig struct {
	PrimaryBranch   string `yaml:"primary_branch,omitempty"`
	DisplayTimezone string `yaml:"display_timezone,omitempty"`
	DedupCapacity   int    `yaml:"dedup_capacity,omitempty"`
}

// StoreConfig selects and configures the event store backend.
type StoreConfig struct {
	Backend  string `yaml:"backend,omitempty"` // file|sqlite
	Path     string `yaml:"path,omitempty"`
	Capacity int    `yaml:"capacity,omitempty"`
}

// DigestConfig controls the periodic status digest to Slack.
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	Interval string `yaml:"interval,omitempty"` // Go duration, e.g. "6h"
}

// FanoutConfig controls optional NATS event publishing.
type FanoutConfig struct {
	Enabled       bool   `yaml:"enabled,omitempty"`
	URL           string `yaml:"url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// RetryConfig controls Slack delivery retries.
type RetryConfig struct {
	Backoff    string `yaml:"backoff,omitempty"` // fixed|linear|exponential
	Initial    string `yaml:"initial,omitempty"` // Go duration
	Max        string `yaml:"max,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error
	Format string `yaml:"format,omitempty"` // json|text
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration with all defaults applied and no file involved.
// Used when running without a config file (environment variables only).
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.WebhookPort == 0 {
		c.Server.WebhookPort = 8000
	}
	if c.Server.AdminPort == 0 {
		c.Server.AdminPort = 8081
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if c.GitHub.WebhookSecret == "" {
		c.GitHub.WebhookSecret = os.Getenv("GITHUB_WEBHOOK_SECRET")
	}
	if c.Slack.WebhookURL == "" {
		c.Slack.WebhookURL = os.Getenv("SLACK_WEBHOOK_URL")
	}
	if c.Events.PrimaryBranch == "" {
		c.Events.PrimaryBranch = "main"
	}
	if c.Events.DisplayTimezone == "" {
		c.Events.DisplayTimezone = "Asia/Kolkata"
	}
	if c.Events.DedupCapacity == 0 {
		c.Events.DedupCapacity = 1024
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Path == "" {
		if c.Store.Backend == "sqlite" {
			c.Store.Path = "events.db"
		} else {
			c.Store.Path = "event_log.json"
		}
	}
	if c.Store.Capacity == 0 {
		c.Store.Capacity = 100
	}
	if c.Digest.Interval == "" {
		c.Digest.Interval = "6h"
	}
	if c.Fanout.SubjectPrefix == "" {
		c.Fanout.SubjectPrefix = "prbridge.events"
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = "linear"
	}
	if c.Retry.Initial == "" {
		c.Retry.Initial = "1s"
	}
	if c.Retry.Max == "" {
		c.Retry.Max = "30s"
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks fields that cannot be defaulted into a working state.
func (c *Config) Validate() error {
	if c.Server.WebhookPort == c.Server.AdminPort {
		return fmt.Errorf("webhook_port and admin_port must differ (both %d)", c.Server.WebhookPort)
	}
	switch c.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unsupported store backend: %s (expected file or sqlite)", c.Store.Backend)
	}
	if c.Store.Capacity < 1 {
		return fmt.Errorf("store capacity must be positive, got %d", c.Store.Capacity)
	}
	if _, err := time.ParseDuration(c.Digest.Interval); err != nil {
		return fmt.Errorf("invalid digest interval %q: %w", c.Digest.Interval, err)
	}
	if _, err := time.ParseDuration(c.Retry.Initial); err != nil {
		return fmt.Errorf("invalid retry initial %q: %w", c.Retry.Initial, err)
	}
	if _, err := time.ParseDuration(c.Retry.Max); err != nil {
		return fmt.Errorf("invalid retry max %q: %w", c.Retry.Max, err)
	}
	if NormalizeRetryBackoff(c.Retry.Backoff) == "" {
		return fmt.Errorf("unsupported retry backoff: %s", c.Retry.Backoff)
	}
	if c.Fanout.Enabled && c.Fanout.URL == "" {
		return fmt.Errorf("fanout enabled but no NATS url configured")
	}
	return nil
}

// DigestInterval returns the parsed digest interval. Validate guarantees it parses.
func (c *Config) DigestInterval() time.Duration {
	d, _ := time.ParseDuration(c.Digest.Interval)
	return d
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			WebhookPort: 8000,
			AdminPort:   8081,
		},
		GitHub: GitHubConfig{
			Token:         "${GITHUB_TOKEN}",
			WebhookSecret: "${GITHUB_WEBHOOK_SECRET}",
		},
		Slack: SlackConfig{
			WebhookURL: "${SLACK_WEBHOOK_URL}",
		},
		Events: EventsConfig{
			PrimaryBranch:   "main",
			DisplayTimezone: "Asia/Kolkata",
		},
		Store: StoreConfig{
			Backend:  "file",
			Path:     "event_log.json",
			Capacity: 100,
		},
		Digest: DigestConfig{
			Enabled:  false,
			Interval: "6h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
