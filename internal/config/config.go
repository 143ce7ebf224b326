// Package config loads the service configuration from config/<env>.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Search providers.
const (
	ProviderMemory      = "memory"
	ProviderRedis       = "redis"
	ProviderMeilisearch = "meilisearch"
)

// Config holds the searchsync configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Search  SearchConfig  `yaml:"search"`
	Sync    SyncConfig    `yaml:"sync"`
	Source  SourceConfig  `yaml:"source"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig selects and configures the search backend.
type SearchConfig struct {
	Provider          string `yaml:"provider"` // memory, redis, meilisearch (default: memory)
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"` // redis logical database
	APIKey            string `yaml:"api_key"`
	IndexPrefix       string `yaml:"index_prefix"`
	IndexName         string `yaml:"index_name"`
	SSL               bool   `yaml:"ssl"`
	TaskTimeoutSec    int    `yaml:"task_timeout_sec"`
	TaskPollInterval  int    `yaml:"task_poll_interval_ms"`
	ConnectRetries    int    `yaml:"connect_retries"`
	ConnectRetryDelay int    `yaml:"connect_retry_delay_ms"`
}

// SyncConfig tunes the synchronization engine.
type SyncConfig struct {
	Mode            string `yaml:"mode"` // realtime, queued
	BatchSize       int    `yaml:"batch_size"`
	MaxRetries      *int   `yaml:"max_retries"` // nil = default, 0 disables retries
	RetryIntervalMs int    `yaml:"retry_interval_ms"`
	MaxQueueSize    int    `yaml:"max_queue_size"`
	DrainIntervalMs int    `yaml:"drain_interval_ms"`
	Overflow        string `yaml:"overflow"` // evict_oldest, reject
}

// SourceConfig points at the Postgres record store used for resyncs.
type SourceConfig struct {
	DSN       string `yaml:"dsn"`
	Query     string `yaml:"query"`
	BatchSize int    `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	s := &c.Search
	if s.Provider == "" {
		s.Provider = ProviderMemory
	}
	if s.IndexName == "" {
		s.IndexName = "documents"
	}
	if s.TaskTimeoutSec <= 0 {
		s.TaskTimeoutSec = 30
	}
	if s.TaskPollInterval <= 0 {
		s.TaskPollInterval = 100
	}
	if s.ConnectRetries <= 0 {
		s.ConnectRetries = 5
	}
	if s.ConnectRetryDelay <= 0 {
		s.ConnectRetryDelay = 500
	}
	if s.Port == 0 {
		switch s.Provider {
		case ProviderRedis:
			s.Port = 6379
		case ProviderMeilisearch:
			s.Port = 7700
		}
	}

	y := &c.Sync
	if y.Mode == "" {
		y.Mode = "queued"
	}
	if y.BatchSize <= 0 {
		y.BatchSize = 50
	}
	if y.MaxRetries == nil {
		n := 3
		y.MaxRetries = &n
	}
	if y.RetryIntervalMs <= 0 {
		y.RetryIntervalMs = 1000
	}
	if y.MaxQueueSize <= 0 {
		y.MaxQueueSize = 1000
	}
	if y.DrainIntervalMs <= 0 {
		y.DrainIntervalMs = 5000
	}
	if y.Overflow == "" {
		y.Overflow = "evict_oldest"
	}

	if c.Source.BatchSize <= 0 {
		c.Source.BatchSize = 500
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.Provider {
	case ProviderMemory:
	case ProviderRedis, ProviderMeilisearch:
		if c.Search.Host == "" {
			return fmt.Errorf("search.host is required for provider %q", c.Search.Provider)
		}
	default:
		return fmt.Errorf(
			"search.provider must be one of memory, redis, meilisearch, got %q", c.Search.Provider,
		)
	}
	if c.Search.DB < 0 {
		return fmt.Errorf("search.db must not be negative, got %d", c.Search.DB)
	}
	switch c.Sync.Mode {
	case "realtime", "queued":
	default:
		return fmt.Errorf("sync.mode must be \"realtime\" or \"queued\", got %q", c.Sync.Mode)
	}
	switch c.Sync.Overflow {
	case "evict_oldest", "reject":
	default:
		return fmt.Errorf("sync.overflow must be \"evict_oldest\" or \"reject\", got %q", c.Sync.Overflow)
	}
	if c.Sync.MaxRetries != nil && *c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must not be negative, got %d", *c.Sync.MaxRetries)
	}
	if c.Sync.MaxRetries != nil && *c.Sync.MaxRetries > maxSyncRetries {
		return fmt.Errorf("sync.max_retries must be at most %d, got %d", maxSyncRetries, *c.Sync.MaxRetries)
	}
	return nil
}

// maxSyncRetries mirrors the engine's retry budget limit.
const maxSyncRetries = 32

// FullIndexName returns the index name with the configured prefix.
func (s SearchConfig) FullIndexName() string {
	return s.IndexPrefix + s.IndexName
}

// Addr returns host:port for the backend.
func (s SearchConfig) Addr() string {
	if s.Port == 0 {
		return s.Host
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// URL returns the HTTP base URL for HTTP backends.
func (s SearchConfig) URL() string {
	if strings.Contains(s.Host, "://") {
		return s.Addr()
	}
	scheme := "http"
	if s.SSL {
		scheme = "https"
	}
	return scheme + "://" + s.Addr()
}

// TaskTimeout returns the backend task timeout.
func (s SearchConfig) TaskTimeout() time.Duration {
	return time.Duration(s.TaskTimeoutSec) * time.Second
}

// PollInterval returns the backend task poll interval.
func (s SearchConfig) PollInterval() time.Duration {
	return time.Duration(s.TaskPollInterval) * time.Millisecond
}

// RetryDelay returns the initial connect retry delay.
func (s SearchConfig) RetryDelay() time.Duration {
	return time.Duration(s.ConnectRetryDelay) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
