// Package config loads CipherBox's CLI/session configuration. Layering:
// CLI flags override environment
// variables (CIPHERBOX_*), which override a YAML config file, which
// overrides built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cipherbox-vault/core/internal/bytesize"
)

// Config is the CipherBox vault client configuration.
//
// Configuration sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (CIPHERBOX_*)
//  3. Configuration file (YAML)
//  4. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and Pyroscope
	// continuous profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Facade configures the HTTP client used to reach the façade service
	// that fronts block storage and pointer routing.
	Facade FacadeConfig `mapstructure:"facade" yaml:"facade"`

	// Publish configures the mutable-pointer publish pipeline: local
	// sequence bookkeeping store and per-operation timeouts.
	Publish PublishConfig `mapstructure:"publish" yaml:"publish"`

	// Quota controls the client-side pre-flight quota check performed
	// before an upload is attempted.
	Quota QuotaConfig `mapstructure:"quota" yaml:"quota"`

	// Metrics contains Prometheus metrics registration configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// StreamCache configures the bounded in-memory cache of encrypted media
	// bodies and their key material, used to serve range reads without
	// re-fetching the same CTR-encrypted body.
	StreamCache StreamCacheConfig `mapstructure:"stream_cache" yaml:"stream_cache"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing. When enabled,
// trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// FacadeConfig configures the HTTP client used to reach the façade.
type FacadeConfig struct {
	// BaseURL is the façade service's base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	// RequestTimeout defaults to 30s. session.Open does not read it: the
	// façade HTTP client always uses its own fixed 30s request timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"omitempty,gt=0" yaml:"request_timeout"`

	// MaxAttempts is the number of attempts a transient (5xx/timeout)
	// façade failure is retried with full-jitter backoff.
	MaxAttempts int `mapstructure:"max_attempts" validate:"omitempty,min=1" yaml:"max_attempts"`

	// BaseDelay is the base delay of the full-jitter backoff.
	BaseDelay time.Duration `mapstructure:"base_delay" validate:"omitempty,gt=0" yaml:"base_delay"`
}

// PublishConfig configures the mutable-pointer publish pipeline.
type PublishConfig struct {
	// StorePath is the directory for the badger-backed pointer sequence
	// cache. Empty means in-memory only (no crash-recovery of sequence
	// bookkeeping).
	StorePath string `mapstructure:"store_path" yaml:"store_path"`

	// PublishTimeout defaults to publish.PublishTimeout. No code in this
	// module applies it as a deadline around publish calls.
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"omitempty,gt=0" yaml:"publish_timeout"`

	// ResolveTimeout defaults to publish.ResolveTimeout. No code in this
	// module applies it as a deadline around resolve calls.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" validate:"omitempty,gt=0" yaml:"resolve_timeout"`
}

// QuotaConfig controls the client-side quota pre-flight check.
type QuotaConfig struct {
	// PreflightEnabled controls whether Session checks façade quota
	// before attempting an upload. Default: true.
	PreflightEnabled bool `mapstructure:"preflight_enabled" yaml:"preflight_enabled"`
}

// StreamCacheConfig configures the bounded LRU stream cache.
type StreamCacheConfig struct {
	// Dir is accepted but not read by any code in this module: the stream
	// cache is in memory only.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// MaxSize is accepted and defaulted but not read by the stream cache,
	// which is bounded by MaxStreams only, not by total size.
	// Supports human-readable formats: "256MB", "1Gi".
	MaxSize bytesize.ByteSize `mapstructure:"max_size" yaml:"max_size"`

	// MaxStreams bounds how many encrypted file bodies stay registered at
	// once; the least-recently-used stream is evicted first.
	MaxStreams int `mapstructure:"max_streams" validate:"omitempty,min=1" yaml:"max_streams"`
}

// MetricsConfig configures Prometheus metrics registration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CIPHERBOX_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig()
// as is: environment variables are not consulted in that case.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error with setup
// instructions if no config file is found at the given (or default) path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  cipherboxctl init\n\n"+
				"Or specify a custom config file:\n"+
				"  cipherboxctl <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  cipherboxctl init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the config file is readable and writable by its owner only.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variable and config file
// search settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CIPHERBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, preferring
// XDG_CONFIG_HOME, falling back to ~/.config, or "." if the home
// directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cipherbox")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "cipherbox")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
