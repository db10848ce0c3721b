package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "DEBUG"

facade:
  base_url: "https://facade.example.com"

quota:
  preflight_enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected logging level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Facade.BaseURL != "https://facade.example.com" {
		t.Errorf("expected facade base_url to round trip, got %q", cfg.Facade.BaseURL)
	}
	if cfg.Facade.MaxAttempts != 3 {
		t.Errorf("expected default facade max_attempts 3, got %d", cfg.Facade.MaxAttempts)
	}
	if cfg.Facade.BaseDelay != 250*time.Millisecond {
		t.Errorf("expected default facade base_delay 250ms, got %v", cfg.Facade.BaseDelay)
	}
	if cfg.Quota.PreflightEnabled {
		t.Errorf("expected quota preflight_enabled to stay false when set explicitly in file")
	}
	if cfg.StreamCache.MaxSize == 0 {
		t.Errorf("expected default stream cache max_size to be populated")
	}
}

func TestLoad_NoFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(filepath.Join(tmpDir, "missing.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing config file, got %v", err)
	}
	if !cfg.Quota.PreflightEnabled {
		t.Errorf("expected default quota preflight_enabled true")
	}
	if cfg.Facade.BaseURL == "" {
		t.Errorf("expected a default facade base_url")
	}
}

func TestLoad_InvalidLoggingLevel_FailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "NOISY"

facade:
  base_url: "https://facade.example.com"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatalf("expected validation error for invalid logging level")
	}
}

func TestLoad_MissingFacadeURL_FailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatalf("expected validation error for missing facade.base_url")
	}
}

func TestSaveConfig_RoundTrips(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Facade.BaseURL = "https://facade.example.com"

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Facade.BaseURL != cfg.Facade.BaseURL {
		t.Errorf("expected facade base_url %q, got %q", cfg.Facade.BaseURL, loaded.Facade.BaseURL)
	}
}

func TestGetDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	path := GetDefaultConfigPath()
	if filepath.Dir(path) != filepath.Join("/tmp/xdgtest", "cipherbox") {
		t.Errorf("expected config dir under XDG_CONFIG_HOME, got %q", path)
	}
}
