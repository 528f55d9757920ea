package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Upload.MaxBytes != 32<<20 {
		t.Errorf("expected 32 MiB upload limit, got %d", cfg.Upload.MaxBytes)
	}
	if cfg.Upload.RatePerSecond != 1 || cfg.Upload.Burst != 5 {
		t.Errorf("expected 1/s upload rate with burst 5, got %v/%d", cfg.Upload.RatePerSecond, cfg.Upload.Burst)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %v", cfg.Cache.TTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Logging.Level)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
server:
  port: 9000
cache:
  ttl: 30s
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected ttl 30s, got %v", cfg.Cache.TTL)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Addr() != "127.0.0.1:9000" {
		t.Errorf("expected addr '127.0.0.1:9000', got %q", cfg.Addr())
	}
}

func TestParseInvalidPort(t *testing.T) {
	if _, err := parse([]byte("server:\n  port: 70000\n")); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Cache.CleanupInterval != 10*time.Minute {
		t.Errorf("expected cleanup interval 10m, got %v", cfg.Cache.CleanupInterval)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestResolveExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
