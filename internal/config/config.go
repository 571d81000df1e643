package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig    `json:"server"`
	Approval ApprovalConfig  `json:"approval"`
	Networks NetworksConfig  `json:"networks"`
	Fetch    FetchConfig     `json:"fetch"`
	Slack    SlackConfig     `json:"slack"`
	Jobs     types.JobConfig `json:"jobs"`
	LogLevel string          `json:"log_level" env:"LOG_LEVEL"`
}

type ServerConfig struct {
	Port         string `json:"port" env:"PORT"`
	ReadTimeout  string `json:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout string `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
}

type ApprovalConfig struct {
	Timeout string `json:"timeout" env:"APPROVAL_TIMEOUT"`
}

type NetworksConfig struct {
	SeedPath       string `json:"seed_path" env:"NETWORKS_SEED_PATH"`
	SnapshotPath   string `json:"snapshot_path" env:"NETWORKS_SNAPSHOT_PATH"`
	HealthInterval string `json:"health_interval" env:"NETWORKS_HEALTH_INTERVAL"`
}

type FetchConfig struct {
	TimeoutMS int `json:"timeout_ms" env:"FETCH_TIMEOUT_MS"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url" env:"SLACK_WEBHOOK_URL"`
}

// Load reads the JSON config at configPath. When the file cannot be read
// the config comes from the environment (.env and .env.local included).
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		loadDotEnv()
		config, err := FromEnv()
		if err != nil {
			return nil, err
		}
		if err := config.Validate(); err != nil {
			return nil, err
		}
		return config, nil
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadDotEnv copies .env, or .env.local when .env is absent, into the
// process environment. Variables already set win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
		}
	}
}

// FromEnv overlays environment variables on the defaults. Unset
// variables keep their default value.
func FromEnv() (*Config, error) {
	config := DefaultConfig()

	targets := []interface{}{
		&config.Server,
		&config.Approval,
		&config.Networks,
		&config.Fetch,
		&config.Slack,
	}
	for _, target := range targets {
		if err := env.Parse(target); err != nil {
			return nil, fmt.Errorf("failed to parse environment: %w", err)
		}
	}

	level := struct {
		LogLevel string `env:"LOG_LEVEL"`
	}{LogLevel: config.LogLevel}
	if err := env.Parse(&level); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	config.LogLevel = level.LogLevel

	return config, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  "15s",
			WriteTimeout: "10m",
		},
		Approval: ApprovalConfig{
			Timeout: "5m",
		},
		Networks: NetworksConfig{
			SeedPath:       "config/networks.yaml",
			SnapshotPath:   "data/networks.yaml",
			HealthInterval: "5m",
		},
		Fetch: FetchConfig{
			TimeoutMS: 10000,
		},
		Jobs:     types.DefaultJobConfig(),
		LogLevel: "info",
	}
}

// Validate checks durations and that the server outlives a pending approval.
func (c *Config) Validate() error {
	approval, err := c.ApprovalTimeout()
	if err != nil {
		return err
	}

	if _, err := c.ReadTimeout(); err != nil {
		return err
	}

	write, err := c.WriteTimeout()
	if err != nil {
		return err
	}
	if write <= approval {
		return fmt.Errorf("server write timeout %s must exceed approval timeout %s", write, approval)
	}

	if _, err := c.HealthInterval(); err != nil {
		return err
	}

	if c.Fetch.TimeoutMS < 1 {
		return fmt.Errorf("fetch timeout must be a positive number of milliseconds")
	}
	return nil
}

func (c *Config) ApprovalTimeout() (time.Duration, error) {
	return parseDuration("approval timeout", c.Approval.Timeout)
}

func (c *Config) ReadTimeout() (time.Duration, error) {
	return parseDuration("server read timeout", c.Server.ReadTimeout)
}

func (c *Config) WriteTimeout() (time.Duration, error) {
	return parseDuration("server write timeout", c.Server.WriteTimeout)
}

// HealthInterval is the endpoint check period. Zero disables checking.
func (c *Config) HealthInterval() (time.Duration, error) {
	value := c.Networks.HealthInterval
	if value == "" || value == "off" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid network health interval %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("network health interval must not be negative")
	}
	return d, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
