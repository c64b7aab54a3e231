package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7467" {
		t.Errorf("default listen = %q", cfg.Listen)
	}
	if cfg.PollIntervalSec != 30 {
		t.Errorf("default poll interval = %d", cfg.PollIntervalSec)
	}
	if cfg.Detector.HistoryCap != 1000 {
		t.Errorf("default history cap = %d", cfg.Detector.HistoryCap)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen: "0.0.0.0:9999"
poll_interval_sec: 5
detector:
  history_cap: 200
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9999" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.PollIntervalSec != 5 {
		t.Errorf("poll interval = %d", cfg.PollIntervalSec)
	}
	if cfg.Detector.HistoryCap != 200 {
		t.Errorf("history cap = %d", cfg.Detector.HistoryCap)
	}
	// Unset keys keep defaults.
	if cfg.BatchLimit != 500 {
		t.Errorf("batch limit = %d, want default 500", cfg.BatchLimit)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.SourceDBPath = "/tmp/capture.db"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got.SourceDBPath != "/tmp/capture.db" {
		t.Errorf("source db path = %q", got.SourceDBPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero poll interval", func(c *Config) { c.PollIntervalSec = 0 }},
		{"zero batch limit", func(c *Config) { c.BatchLimit = 0 }},
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
