// Package config loads novelflow's runtime configuration from the
// environment: godotenv for local .env files, then a getEnv family with
// defaults.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full set of runtime knobs novelflow reads at startup.
type Config struct {
	Logging  LoggingConfig
	Engine   EngineConfig
	Provider ProviderSet
}

// LoggingConfig controls the internal/logger wrapper around log/slog.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// EngineConfig carries the executor's safety ceilings and defaults.
// DefaultLoopMaxCount and DefaultTimeoutSeconds fill a workflow's unset
// bounds in cmd/novelflow. DefaultConcurrency and DefaultRetryCount are
// read from the environment but are not passed to parallel_start, which
// uses its own built-in defaults when a node omits them.
type EngineConfig struct {
	DefaultLoopMaxCount   int
	DefaultTimeoutSeconds int
	DefaultConcurrency    int
	DefaultRetryCount     int
}

// ProviderSet maps a provider name ("openai", ...) to its resolved
// credentials, feeding pkg/models.GlobalConfig.
type ProviderSet struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIEnabled bool
}

// Load reads .env (if present) then the process environment, applying
// defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  getEnv("NOVELFLOW_LOG_LEVEL", "info"),
			Format: getEnv("NOVELFLOW_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			DefaultLoopMaxCount:   getEnvAsInt("NOVELFLOW_LOOP_MAX_COUNT", 100),
			DefaultTimeoutSeconds: getEnvAsInt("NOVELFLOW_TIMEOUT_SECONDS", 300),
			DefaultConcurrency:    getEnvAsInt("NOVELFLOW_PARALLEL_CONCURRENCY", 3),
			DefaultRetryCount:     getEnvAsInt("NOVELFLOW_PARALLEL_RETRY_COUNT", 3),
		},
		Provider: ProviderSet{
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIEnabled: getEnvAsBool("NOVELFLOW_OPENAI_ENABLED", true),
		},
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
