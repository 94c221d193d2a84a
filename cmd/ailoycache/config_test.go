package main

import "testing"

func TestDefaultCLIConfig(t *testing.T) {
	cfg := defaultCLIConfig()
	if cfg.Parallelism != 8 {
		t.Errorf("expected default parallelism 8, got %d", cfg.Parallelism)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.CacheRoot != "" || cfg.RemoteURL != "" {
		t.Errorf("expected empty overrides by default, got %+v", cfg)
	}
}
