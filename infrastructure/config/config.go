// Package config provides configuration loading for the query agent:
// a JSON file, environment overrides, and a file watcher that swaps the
// active configuration between requests.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/queryagent/domain/query"
)

// Config errors.
var (
	// ErrConfigNotFound indicates the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidConfig indicates the config failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the full agent configuration.
type Config struct {
	// Provider selects the model backend: "openai" or "ollama".
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`

	DatabaseDSN string `json:"database_dsn"`

	AllowWrites   bool   `json:"allow_writes"`
	AgentEnabled  bool   `json:"agent_enabled"`
	MaxIterations int    `json:"max_iterations"`
	SafeStatement string `json:"safe_statement"`

	// AuditPath is the SQLite audit database path; empty disables auditing.
	AuditPath string `json:"audit_path"`

	// RedisAddress enables the Redis schema cache; empty selects in-memory.
	RedisAddress string `json:"redis_address"`

	// TraceEnabled installs the stdout span exporter.
	TraceEnabled bool `json:"trace_enabled"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		AgentEnabled:  true,
		MaxIterations: 5,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Policy returns the guard policy described by the configuration.
func (c Config) Policy() query.Policy {
	return query.Policy{AllowWrites: c.AllowWrites}
}

// Validate checks the configuration for usability.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive", ErrInvalidConfig)
	}
	return nil
}

// Load reads the JSON file at path over the defaults and applies
// environment overrides. An empty path skips the file and loads defaults
// plus environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envPrefix namespaces all environment overrides.
const envPrefix = "QUERYAGENT_"

// applyEnv overrides config fields from QUERYAGENT_* variables.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = parsed
			}
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = parsed
			}
		}
	}

	setString("PROVIDER", &cfg.Provider)
	setString("MODEL", &cfg.Model)
	setString("API_KEY", &cfg.APIKey)
	setString("BASE_URL", &cfg.BaseURL)
	setString("DATABASE_DSN", &cfg.DatabaseDSN)
	setBool("ALLOW_WRITES", &cfg.AllowWrites)
	setBool("AGENT_ENABLED", &cfg.AgentEnabled)
	setInt("MAX_ITERATIONS", &cfg.MaxIterations)
	setString("SAFE_STATEMENT", &cfg.SafeStatement)
	setString("AUDIT_PATH", &cfg.AuditPath)
	setString("REDIS_ADDRESS", &cfg.RedisAddress)
	setBool("TRACE_ENABLED", &cfg.TraceEnabled)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("LOG_FORMAT", &cfg.LogFormat)
}
