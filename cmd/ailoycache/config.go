package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// cliConfig is ailoycache's own on-disk settings file, read only by
// the CLI — the cache package itself never reads files outside the
// cache root or its env vars, so it stays embeddable as a library
// independent of this config file.
type cliConfig struct {
	CacheRoot   string `yaml:"cache_root,omitempty"`
	RemoteURL   string `yaml:"remote_url,omitempty"`
	Parallelism int    `yaml:"parallelism"`
	LogLevel    string `yaml:"log_level"`
}

func defaultCLIConfig() *cliConfig {
	return &cliConfig{
		Parallelism: 8,
		LogLevel:    "info",
	}
}

func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ailoy/config.yaml"
	}
	return filepath.Join(home, ".ailoy", "config.yaml")
}

func loadCLIConfig() (*cliConfig, error) {
	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultCLIConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := defaultCLIConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func (c *cliConfig) save() error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
