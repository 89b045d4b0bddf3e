package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"klineRecon/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Fetch Parameters
	Symbol   string
	Interval string
	Limit    int
	BaseURL  string // Optional kline endpoint override

	// Output
	OutputCSV     string
	ArchiveDBPath string // Empty disables the SQLite archive

	// Reconciliation
	DropLast bool // Trim the trailing (possibly partial) row before comparing

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // "text" (std logger) or "json" (zap)
	LogFile   string          // Rotating log file for the json logger; optional
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Fetch Parameters
	cfg.Symbol = getEnv("SYMBOL", "BNBUSDT")
	if strings.TrimSpace(cfg.Symbol) == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.Interval = getEnv("INTERVAL", "4h")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}

	cfg.Limit, err = getEnvAsIntRequired("LIMIT", 1000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LIMIT: %v", err))
	} else if cfg.Limit < 1 {
		errs = append(errs, "LIMIT must be at least 1")
	}

	cfg.BaseURL = getEnv("BASE_URL", "")

	// Output
	cfg.OutputCSV = getEnv("OUTPUT_CSV", "./data/candles_data.csv")
	cfg.ArchiveDBPath = getEnv("ARCHIVE_DB_PATH", "")

	// Reconciliation
	cfg.DropLast = getEnvAsBool("DROP_LAST", true)

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be 'text' or 'json', got %q", cfg.LogFormat))
	}
	cfg.LogFile = getEnv("LOG_FILE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
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
