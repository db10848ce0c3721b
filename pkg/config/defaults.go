package config

import (
	"strings"
	"time"

	"github.com/cipherbox-vault/core/internal/bytesize"
	"github.com/cipherbox-vault/core/pkg/publish"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Called after loading from file and environment so that
// partially-specified configs still validate.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyFacadeDefaults(&cfg.Facade)
	applyPublishDefaults(&cfg.Publish)
	applyMetricsDefaults(&cfg.Metrics)
	applyStreamCacheDefaults(&cfg.StreamCache)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines",
		}
	}
}

func applyFacadeDefaults(cfg *FacadeConfig) {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
}

func applyPublishDefaults(cfg *PublishConfig) {
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = publish.PublishTimeout
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = publish.ResolveTimeout
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyStreamCacheDefaults(cfg *StreamCacheConfig) {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 256 * bytesize.MB
	}
	if cfg.MaxStreams == 0 {
		cfg.MaxStreams = 5
	}
}

// GetDefaultConfig returns a fully-populated default Config, used when no
// configuration file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Facade: FacadeConfig{
			BaseURL: "http://localhost:8080",
		},
		Quota: QuotaConfig{
			PreflightEnabled: true,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
