package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the defaults validate on their own.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.Report.MaxMonths != 3 {
		t.Errorf("MaxMonths = %d, want 3", cfg.Report.MaxMonths)
	}
}

// TestLoad_OverridesDefaults verifies YAML values override defaults while
// unset keys keep them.
func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9090
report:
  max_months: 2
  top_hosts: 20
redis:
  enabled: true
  addr: "redis:6379"
  cache_ttl: 30m
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Report.MaxMonths != 2 || cfg.Report.TopHosts != 20 {
		t.Errorf("report config = %+v", cfg.Report)
	}
	if !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 30*time.Minute {
		t.Errorf("redis config = %+v", cfg.Redis)
	}
	// Unset key keeps its default.
	if cfg.Report.TopUsers != 5 {
		t.Errorf("TopUsers = %d, want default 5", cfg.Report.TopUsers)
	}
}

// TestLoad_MissingFile verifies a missing config file is an error rather
// than silent defaults.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestValidate_Rejections covers the rejection cases one by one.
func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"max months zero", func(c *Config) { c.Report.MaxMonths = 0 }},
		{"max months too large", func(c *Config) { c.Report.MaxMonths = 4 }},
		{"top hosts negative", func(c *Config) { c.Report.TopHosts = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
