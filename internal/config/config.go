// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for all databases (always absolute)
	Port              int
	DevMode           bool
	LogLevel          string
	ReportingTimezone string // IANA zone used for snapshot cadence alignment
	FundFallbackPath  string // TOML file with curated fund fallback prices
	RefreshMinutes    int    // Minutes between batch price refreshes
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic:
	// 1. Check NESTEGG_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("NESTEGG_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fallbackPath := getEnv("NESTEGG_FUND_FALLBACK", "")
	if fallbackPath == "" {
		fallbackPath = filepath.Join(absDataDir, "fund_fallback.toml")
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("NESTEGG_PORT", 8090),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReportingTimezone: getEnv("NESTEGG_TIMEZONE", "Europe/London"),
		FundFallbackPath:  fallbackPath,
		RefreshMinutes:    getEnvAsInt("NESTEGG_REFRESH_MINUTES", 15),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.RefreshMinutes <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %d", c.RefreshMinutes)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
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
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
