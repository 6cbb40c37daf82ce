package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig limits license activation and approval attempts per client
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"5"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// StoreConfig selects and configures the persistence backend for the
// settings, approval, and audit tables.
type StoreConfig struct {
	// Driver is either "postgres" or "memory". The memory driver keeps all
	// state in process and is intended for tests and single-node evaluation.
	Driver   string        `yaml:"driver" envconfig:"DRIVER" default:"memory"`
	DSN      string        `yaml:"dsn" envconfig:"DSN"`
	MaxConns int32         `yaml:"max_conns" envconfig:"MAX_CONNS" default:"8"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"5s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("TERRA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config, env takes precedence
func mergeConfigs(fileCfg, envCfg Config) Config {
	merged := fileCfg

	if envCfg.Server.Port != 8080 {
		merged.Server.Port = envCfg.Server.Port
	}
	if envCfg.Logging.Level != "info" {
		merged.Logging.Level = envCfg.Logging.Level
	}
	if envCfg.Logging.Output != "console" {
		merged.Logging.Output = envCfg.Logging.Output
	}
	if envCfg.Store.Driver != "memory" {
		merged.Store.Driver = envCfg.Store.Driver
	}
	if envCfg.Store.DSN != "" {
		merged.Store.DSN = envCfg.Store.DSN
	}

	return merged
}

// getConfigFilePath returns the configuration file path, honoring the
// TERRA_CONFIG override.
func getConfigFilePath() string {
	if path := os.Getenv("TERRA_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// validate checks configuration for invalid or inconsistent values
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires a DSN", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit RPS must be positive, got %f", c.Security.RateLimit.RPS)
		}
		if c.Security.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1, got %d", c.Security.RateLimit.Burst)
		}
	}

	return nil
}
