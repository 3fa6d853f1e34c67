// Package config provides configuration management for reportforge.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all reportforge configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Report  ReportConfig  `yaml:"report"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodySize     int64         `yaml:"max_body_size"`

	// RateLimitPerMinute caps report generations per client per minute.
	// Zero disables limiting. Enforcement needs Redis; without it requests
	// are always allowed.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// RedisConfig holds the bundle cache connection settings.
type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	PasswordEnv string        `yaml:"password_env"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// ReportConfig holds aggregation defaults.
type ReportConfig struct {
	MaxMonths    int `yaml:"max_months"`
	TopHosts     int `yaml:"top_hosts"`
	TopUsers     int `yaml:"top_users"`
	TopCountries int `yaml:"top_countries"`
	TopFiles     int `yaml:"top_files"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodySize:     16 * 1024 * 1024,

			RateLimitPerMinute: 60,
		},
		Redis: RedisConfig{
			Enabled:     false,
			Addr:        "localhost:6379",
			PasswordEnv: "REDIS_PASSWORD",
			DB:          0,
			PoolSize:    10,
			CacheTTL:    1 * time.Hour,
		},
		Report: ReportConfig{
			MaxMonths:    3,
			TopHosts:     10,
			TopUsers:     5,
			TopCountries: 10,
			TopFiles:     10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Report.MaxMonths < 1 || c.Report.MaxMonths > 3 {
		return fmt.Errorf("report.max_months must be 1-3, got %d", c.Report.MaxMonths)
	}
	for name, n := range map[string]int{
		"top_hosts":     c.Report.TopHosts,
		"top_users":     c.Report.TopUsers,
		"top_countries": c.Report.TopCountries,
		"top_files":     c.Report.TopFiles,
	} {
		if n < 1 {
			return fmt.Errorf("report.%s must be positive, got %d", name, n)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	return nil
}
