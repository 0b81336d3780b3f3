package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the pokefetch CLI.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Bucket       string        `yaml:"bucket"`
	LogFile      string        `yaml:"log_file"`
	MaxParallel  int           `yaml:"max_parallel"`
	PollInterval time.Duration `yaml:"poll_interval"`
	GracePeriod  time.Duration `yaml:"grace_period"`
	Progress     bool          `yaml:"progress"`
	Force        bool          `yaml:"force"`
	Retry        RetryConfig   `yaml:"retry"`
	Timeouts     TimeoutConfig `yaml:"timeouts"`
}

// RetryConfig defines the per-item retry policy.
type RetryConfig struct {
	MaxRetries          int           `yaml:"max_retries"`
	Delay               time.Duration `yaml:"delay"`
	RateLimitMultiplier float64       `yaml:"rate_limit_multiplier"`
}

// TimeoutConfig defines fetch timeouts.
type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Total   time.Duration `yaml:"total"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:      "https://pokeapi.co/api/v2/pokemon",
		LogFile:      "attempts.log",
		MaxParallel:  0, // one worker per item
		PollInterval: 250 * time.Millisecond,
		GracePeriod:  5 * time.Second,
		Progress:     true,
		Retry: RetryConfig{
			MaxRetries:          3,
			Delay:               2 * time.Second,
			RateLimitMultiplier: 3,
		},
		Timeouts: TimeoutConfig{
			Connect: 5 * time.Second,
			Total:   30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	BaseURL      string          `yaml:"base_url"`
	Bucket       string          `yaml:"bucket"`
	LogFile      string          `yaml:"log_file"`
	MaxParallel  *int            `yaml:"max_parallel"`
	PollInterval string          `yaml:"poll_interval"`
	GracePeriod  string          `yaml:"grace_period"`
	Progress     *bool           `yaml:"progress"`
	Force        *bool           `yaml:"force"`
	Retry        yamlRetryConfig `yaml:"retry"`
	Timeouts     yamlTimeouts    `yaml:"timeouts"`
}

type yamlRetryConfig struct {
	MaxRetries          int     `yaml:"max_retries"`
	Delay               string  `yaml:"delay"`
	RateLimitMultiplier float64 `yaml:"rate_limit_multiplier"`
}

type yamlTimeouts struct {
	Connect string `yaml:"connect"`
	Total   string `yaml:"total"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.LogFile != "" {
		cfg.LogFile = yc.LogFile
	}
	if yc.MaxParallel != nil {
		cfg.MaxParallel = *yc.MaxParallel
	}
	if yc.PollInterval != "" {
		d, err := time.ParseDuration(yc.PollInterval)
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if yc.GracePeriod != "" {
		d, err := time.ParseDuration(yc.GracePeriod)
		if err != nil {
			return Config{}, fmt.Errorf("parse grace_period: %w", err)
		}
		cfg.GracePeriod = d
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	if yc.Force != nil {
		cfg.Force = *yc.Force
	}
	if yc.Retry.MaxRetries != 0 {
		cfg.Retry.MaxRetries = yc.Retry.MaxRetries
	}
	if yc.Retry.Delay != "" {
		d, err := time.ParseDuration(yc.Retry.Delay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.delay: %w", err)
		}
		cfg.Retry.Delay = d
	}
	if yc.Retry.RateLimitMultiplier != 0 {
		cfg.Retry.RateLimitMultiplier = yc.Retry.RateLimitMultiplier
	}
	if yc.Timeouts.Connect != "" {
		d, err := time.ParseDuration(yc.Timeouts.Connect)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeouts.connect: %w", err)
		}
		cfg.Timeouts.Connect = d
	}
	if yc.Timeouts.Total != "" {
		d, err := time.ParseDuration(yc.Timeouts.Total)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeouts.total: %w", err)
		}
		cfg.Timeouts.Total = d
	}

	return cfg, nil
}

// LoadFromEnv overrides c from POKEFETCH_ environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("POKEFETCH_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("POKEFETCH_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("POKEFETCH_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("POKEFETCH_MAX_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_MAX_PARALLEL: %w", err)
		}
		c.MaxParallel = n
	}
	if v := os.Getenv("POKEFETCH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("POKEFETCH_GRACE_PERIOD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_GRACE_PERIOD: %w", err)
		}
		c.GracePeriod = d
	}
	if v := os.Getenv("POKEFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("POKEFETCH_FORCE"); v != "" {
		c.Force = v == "true" || v == "1"
	}
	if v := os.Getenv("POKEFETCH_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_MAX_RETRIES: %w", err)
		}
		c.Retry.MaxRetries = n
	}
	if v := os.Getenv("POKEFETCH_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_RETRY_DELAY: %w", err)
		}
		c.Retry.Delay = d
	}
	if v := os.Getenv("POKEFETCH_RATE_LIMIT_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_RATE_LIMIT_MULTIPLIER: %w", err)
		}
		c.Retry.RateLimitMultiplier = f
	}
	if v := os.Getenv("POKEFETCH_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_CONNECT_TIMEOUT: %w", err)
		}
		c.Timeouts.Connect = d
	}
	if v := os.Getenv("POKEFETCH_TOTAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse POKEFETCH_TOTAL_TIMEOUT: %w", err)
		}
		c.Timeouts.Total = d
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("config: base_url is required")
	}
	if c.Bucket == "" {
		return errors.New("config: bucket is required")
	}
	if c.LogFile == "" {
		return errors.New("config: log_file is required")
	}
	if c.MaxParallel < 0 {
		return errors.New("config: max_parallel must not be negative")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	if c.GracePeriod <= 0 {
		return errors.New("config: grace_period must be positive")
	}
	if c.Retry.MaxRetries < 1 {
		return errors.New("config: retry.max_retries must be at least 1")
	}
	if c.Retry.Delay <= 0 {
		return errors.New("config: retry.delay must be positive")
	}
	if c.Retry.RateLimitMultiplier <= 1 {
		return errors.New("config: retry.rate_limit_multiplier must be greater than 1")
	}
	if c.Timeouts.Connect <= 0 || c.Timeouts.Total <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.LogFile != "" {
		c.LogFile = override.LogFile
	}
	if override.MaxParallel != 0 {
		c.MaxParallel = override.MaxParallel
	}
	if override.PollInterval != 0 {
		c.PollInterval = override.PollInterval
	}
	if override.GracePeriod != 0 {
		c.GracePeriod = override.GracePeriod
	}
	if override.Force {
		c.Force = override.Force
	}
	if override.Retry.MaxRetries != 0 {
		c.Retry.MaxRetries = override.Retry.MaxRetries
	}
	if override.Retry.Delay != 0 {
		c.Retry.Delay = override.Retry.Delay
	}
	if override.Retry.RateLimitMultiplier != 0 {
		c.Retry.RateLimitMultiplier = override.Retry.RateLimitMultiplier
	}
	if override.Timeouts.Connect != 0 {
		c.Timeouts.Connect = override.Timeouts.Connect
	}
	if override.Timeouts.Total != 0 {
		c.Timeouts.Total = override.Timeouts.Total
	}
	return c
}
