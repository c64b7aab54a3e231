// Package config loads and persists the Recall configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/recall/internal/detector"
)

// Config holds the Recall daemon configuration.
type Config struct {
	// Listen is the address the HTTP API binds to.
	Listen string `yaml:"listen"`
	// DBPath is the path of Recall's own SQLite database.
	DBPath string `yaml:"db_path"`
	// SourceDBPath is the capture daemon's database. Empty means
	// auto-detect at startup.
	SourceDBPath string `yaml:"source_db_path"`
	// PollIntervalSec is how often the ingest loop polls for new samples.
	PollIntervalSec int `yaml:"poll_interval_sec"`
	// BatchLimit caps how many samples one poll cycle pulls.
	BatchLimit int `yaml:"batch_limit"`
	// Detector tunes the boundary detector's memory caps.
	Detector detector.Config `yaml:"detector"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Listen:          "127.0.0.1:7467",
		DBPath:          filepath.Join(home, ".recall", "recall.db"),
		PollIntervalSec: 30,
		BatchLimit:      500,
		Detector:        detector.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFromHome loads configuration from ~/.recall/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadConfig(filepath.Join(home, ".recall", "config.yaml"))
}

// SaveConfig saves configuration to a YAML file, creating parent
// directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.PollIntervalSec < 1 {
		return fmt.Errorf("poll_interval_sec must be at least 1")
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("batch_limit must be at least 1")
	}
	return nil
}
