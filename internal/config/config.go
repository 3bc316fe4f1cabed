// Package config provides configuration for the baller intent engine. It
// loads settings from environment variables with the BALLER_ prefix, with
// sensible defaults for every option, and can overlay values from an
// optional YAML file (file values take precedence over env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds all settings for the intent engine and its collaborators.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Context ContextConfig `yaml:"context"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig configures the football-data client.
type APIConfig struct {
	Token             string `yaml:"token"`               // X-Auth-Token for football-data.org
	BaseURL           string `yaml:"base_url"`            // API root (default: production v4)
	RequestsPerMinute int    `yaml:"requests_per_minute"` // client-side rate limit (default: 10)
}

// CacheConfig configures reference-data caching and persistence.
type CacheConfig struct {
	Engine      string        `yaml:"engine"`       // snapshot backend: sqlite, postgres (default: sqlite)
	DataPath    string        `yaml:"data_path"`    // directory for the sqlite snapshot (default: ./data)
	PostgresDSN string        `yaml:"postgres_dsn"` // connection string when engine is postgres
	TTL         Duration      `yaml:"ttl"`          // snapshot freshness TTL (default: 24h)
	WatchFile   bool          `yaml:"watch_file"`   // invalidate when the snapshot file changes on disk
}

// ContextConfig configures per-user conversational memory.
type ContextConfig struct {
	MaxContexts int `yaml:"max_contexts"` // bound on live user contexts (default: 1024)
}

// LogConfig configures logging output.
type LogConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error (default: info)
	Development bool   `yaml:"development"` // human-readable console output
}

// Load builds the configuration from environment variables.
func Load() *Config {
	return &Config{
		API: APIConfig{
			Token:             getEnv("BALLER_API_TOKEN", ""),
			BaseURL:           getEnv("BALLER_API_BASE_URL", "https://api.football-data.org/v4"),
			RequestsPerMinute: getEnvInt("BALLER_API_REQUESTS_PER_MINUTE", 10),
		},
		Cache: CacheConfig{
			Engine:      getEnv("BALLER_CACHE_ENGINE", "sqlite"),
			DataPath:    getEnv("BALLER_DATA_PATH", "./data"),
			PostgresDSN: getEnv("BALLER_POSTGRES_DSN", ""),
			TTL:         Duration(getEnvDuration("BALLER_CACHE_TTL", 24*time.Hour)),
			WatchFile:   getEnvBool("BALLER_CACHE_WATCH_FILE", false),
		},
		Context: ContextConfig{
			MaxContexts: getEnvInt("BALLER_MAX_CONTEXTS", 1024),
		},
		Log: LogConfig{
			Level:       getEnv("BALLER_LOG_LEVEL", "info"),
			Development: getEnvBool("BALLER_LOG_DEVELOPMENT", false),
		},
	}
}

// LoadFile loads env-based configuration, then overlays values from the
// YAML file at path. A missing file is an error; use Load when no file is
// expected.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value when unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool recognizes "true"/"1"/"yes" and "false"/"0"/"no",
// case-insensitive; anything else falls back to the default.
func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
		return true
	case "false", "0", "no", "False", "FALSE", "No", "NO":
		return false
	}
	return defaultValue
}

// getEnvDuration parses a Go duration string ("24h", "10m") or returns the
// default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
