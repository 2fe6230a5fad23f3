// Package config loads and validates the YAML configuration tree for a
// vfskernel service process: logging, storage backend selection, cache
// sizing, and network resilience settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the complete process configuration.
type Configuration struct {
	Global  GlobalConfig  `yaml:"global"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Network NetworkConfig `yaml:"network"`
	Monitor MonitorConfig `yaml:"monitoring"`
}

// GlobalConfig carries process-wide logging and port settings.
type GlobalConfig struct {
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	LogMaxSize int    `yaml:"log_max_size_mb"`
	APIPort    int    `yaml:"api_port"`
	HealthPort int    `yaml:"health_port"`
}

// StorageConfig selects the metadata and blob backends the kernel binds
// to (SPEC_FULL §4.13).
type StorageConfig struct {
	MetadataBackend string     `yaml:"metadata_backend"` // "memory" | "bolt"
	BoltPath        string     `yaml:"bolt_path"`
	BlobBackend     string     `yaml:"blob_backend"` // "memory" | "s3"
	S3              S3Config   `yaml:"s3"`
	Tiering         TierConfig `yaml:"tiering"`
}

// S3Config configures the S3 blob backend.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

// TierConfig sets the size thresholds that move a blob between storage
// tiers (SPEC_FULL §4.13, adapted from the teacher's storage-class rules).
type TierConfig struct {
	HotMaxBytes  int64 `yaml:"hot_max_bytes"`
	WarmMaxBytes int64 `yaml:"warm_max_bytes"`
}

// CacheConfig sizes the blob read cache (SPEC_FULL §4.13).
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// NetworkConfig governs retry and circuit-breaker behavior for remote
// storage backends.
type NetworkConfig struct {
	Timeouts       TimeoutConfig        `yaml:"timeouts"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type TimeoutConfig struct {
	Connect time.Duration `yaml:"connect"`
	Request time.Duration `yaml:"request"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// MonitorConfig toggles metrics and health-check exposure.
type MonitorConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// NewDefault returns a configuration with sensible defaults for local
// development (in-memory backends, no TLS/ports wired to privileged
// ranges).
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:   "INFO",
			LogFile:    "",
			LogMaxSize: 100,
			APIPort:    8080,
			HealthPort: 8081,
		},
		Storage: StorageConfig{
			MetadataBackend: "memory",
			BoltPath:        "vfskernel.db",
			BlobBackend:     "memory",
			Tiering: TierConfig{
				HotMaxBytes:  1 << 20,  // 1MB
				WarmMaxBytes: 64 << 20, // 64MB
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 10000,
			TTL:        5 * time.Minute,
		},
		Network: NetworkConfig{
			Timeouts: TimeoutConfig{
				Connect: 10 * time.Second,
				Request: 30 * time.Second,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   200 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				Timeout:          30 * time.Second,
			},
		},
		Monitor: MonitorConfig{MetricsEnabled: true},
	}
}

// LoadFromFile reads and unmarshals a YAML config file onto c.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv overlays VFSKERNEL_* environment variables onto c.
func (c *Configuration) LoadFromEnv() {
	if v := os.Getenv("VFSKERNEL_LOG_LEVEL"); v != "" {
		c.Global.LogLevel = v
	}
	if v := os.Getenv("VFSKERNEL_LOG_FILE"); v != "" {
		c.Global.LogFile = v
	}
	if v := os.Getenv("VFSKERNEL_API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Global.APIPort = p
		}
	}
	if v := os.Getenv("VFSKERNEL_METADATA_BACKEND"); v != "" {
		c.Storage.MetadataBackend = v
	}
	if v := os.Getenv("VFSKERNEL_BLOB_BACKEND"); v != "" {
		c.Storage.BlobBackend = v
	}
	if v := os.Getenv("VFSKERNEL_S3_BUCKET"); v != "" {
		c.Storage.S3.Bucket = v
	}
	if v := os.Getenv("VFSKERNEL_S3_REGION"); v != "" {
		c.Storage.S3.Region = v
	}
	if v := os.Getenv("VFSKERNEL_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = strings.EqualFold(v, "true")
	}
}

// SaveToFile marshals c to YAML and writes it to filename, creating any
// missing parent directories.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

var validLogLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

var validBackends = map[string]bool{"memory": true, "bolt": true, "s3": true}

// Validate checks field-level invariants the rest of the process assumes
// hold: known backend names, distinct ports, a positive cache size.
func (c *Configuration) Validate() error {
	levelValid := false
	for _, l := range validLogLevels {
		if c.Global.LogLevel == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log_level %q (must be one of %s)", c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !validBackends[c.Storage.MetadataBackend] {
		return fmt.Errorf("invalid metadata_backend %q", c.Storage.MetadataBackend)
	}
	if !validBackends[c.Storage.BlobBackend] {
		return fmt.Errorf("invalid blob_backend %q", c.Storage.BlobBackend)
	}
	if c.Storage.BlobBackend == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("blob_backend s3 requires storage.s3.bucket")
	}
	if c.Global.APIPort == c.Global.HealthPort {
		return fmt.Errorf("api_port and health_port cannot be the same")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be greater than 0 when cache is enabled")
	}
	if c.Network.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("network.retry.max_attempts must be greater than 0")
	}
	return nil
}
