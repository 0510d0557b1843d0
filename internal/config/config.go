package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig
	Policy  PolicyConfig
	Engine  EngineConfig
	History HistoryConfig
	Logging LoggingConfig
}

// CatalogConfig locates the control catalog file
type CatalogConfig struct {
	Path string
}

// PolicyConfig locates the on-disk policy tree
type PolicyConfig struct {
	Root string
}

// EngineConfig configures the external evaluation engine
type EngineConfig struct {
	Binary       string
	GroupTimeout time.Duration
	Workers      int
}

// HistoryConfig configures the local scan history database
type HistoryConfig struct {
	Path    string
	Enabled bool
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Catalog: CatalogConfig{
			Path: getEnv("REGOGUARD_CATALOG", "catalog.yaml"),
		},
		Policy: PolicyConfig{
			Root: getEnv("REGOGUARD_POLICY_ROOT", "policies"),
		},
		Engine: EngineConfig{
			Binary:       getEnv("REGOGUARD_ENGINE", "conftest"),
			GroupTimeout: getEnvAsDuration("REGOGUARD_GROUP_TIMEOUT", 2*time.Minute),
			Workers:      getEnvAsInt("REGOGUARD_WORKERS", 4),
		},
		History: HistoryConfig{
			Path:    getEnv("REGOGUARD_HISTORY_DB", "regoguard.db"),
			Enabled: getEnvAsBool("REGOGUARD_HISTORY", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("REGOGUARD_LOG_LEVEL", "info"),
			Format: getEnv("REGOGUARD_LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Engine.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d", c.Engine.Workers)
	}
	if c.Engine.GroupTimeout < 0 {
		return fmt.Errorf("invalid group timeout: %s", c.Engine.GroupTimeout)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog path must not be empty")
	}
	return nil
}

// Helper functions

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
