// Package config provides configuration management for the cportal agent.
//
// This package handles loading configuration from environment variables,
// validating required settings, and providing sensible defaults for optional
// parameters. Configuration is loaded once at startup and remains immutable
// during runtime for thread-safety.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. Local .env file (fallback, loaded via godotenv)
//  3. Hard-coded defaults (lowest priority)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
//
// This struct is immutable after creation to ensure thread-safety.
// All duration and timeout values are configurable via environment
// variables to allow tuning for different network conditions.
type Config struct {
	// Portal backend base URL (e.g. "https://portal.example.com")
	BaseURL string

	// Authentication credentials (required)
	Username string // Portal account username or email
	Password string // Portal account password

	// Retry configuration for resilience
	MaxLoginRetries int           // Maximum login attempts before giving up
	LoginRetryDelay time.Duration // Delay between login retry attempts
	MaxFetchRetries int           // Maximum attempts per page fetch within a cycle

	// Pagination limits to prevent infinite loops
	MaxPages int // Maximum number of list pages to fetch per cycle

	// Timing configuration for different operations
	FetchInterval time.Duration // How often to refresh complaint data
	FetchTimeout  time.Duration // Maximum time for an entire refresh cycle

	// Telegram configuration (optional)
	TelegramBotToken string // Telegram bot API token
	TelegramChatID   string // Telegram chat ID for notifications

	// Health check server configuration
	HealthCheckPort string // Port for health check HTTP server

	// Debug mode - skips mutating API calls for testing
	DebugMode bool

	// Storage
	StorageFile string // CSV file recording already-notified complaints

	// Performance tuning
	WorkerPoolSize int           // Number of concurrent workers for complaint processing
	BatchSize      int           // Number of records to batch before writing to CSV
	HTTPMaxConns   int           // Maximum HTTP connections in pool
	HTTPTimeout    time.Duration // HTTP client timeout

	// Reporting
	ReportHour int // Hour of day (0-23) to send the daily summary report
}

// LoadConfig loads configuration from environment variables with defaults.
//
// Loading process:
//  1. Try to load a local .env file (optional)
//  2. Read environment variables
//  3. Apply hard-coded defaults for any missing optional values
//  4. Validate that all required fields are present
//
// Returns:
//   - *Config: Fully populated configuration struct
//   - error: Validation error if required fields are missing
func LoadConfig() (*Config, error) {
	// Step 1: Try to load .env file (optional, env vars take precedence)
	_ = godotenv.Load()

	// Step 2: Build config from environment with defaults
	cfg := &Config{
		// Backend base URL - required
		BaseURL: os.Getenv("PORTAL_BASE_URL"),

		// Authentication - REQUIRED, no defaults
		Username: os.Getenv("PORTAL_USERNAME"),
		Password: os.Getenv("PORTAL_PASSWORD"),

		// Retry configuration - tuned for typical network conditions
		MaxLoginRetries: getEnvInt("MAX_LOGIN_RETRIES", 3),                    // 3 attempts is usually enough
		LoginRetryDelay: getEnvDuration("LOGIN_RETRY_DELAY", 5*time.Second),   // 5s between retries
		MaxFetchRetries: getEnvInt("MAX_FETCH_RETRIES", 2),                    // 2 attempts per page fetch

		// Pagination - default 5 pages to balance coverage vs speed
		MaxPages: getEnvInt("MAX_PAGES", 5),

		// Timing - refresh aligned with the complaints cache TTL
		FetchInterval: getEnvDuration("FETCH_INTERVAL", 2*time.Minute),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 5*time.Minute),

		// Telegram - optional, notifications disabled if not set
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		// Health check - default port 8080
		HealthCheckPort: getEnvOrDefault("HEALTH_CHECK_PORT", "8080"),

		// Debug mode - default false (production mode)
		DebugMode: getEnvOrDefault("DEBUG_MODE", "false") == "true",

		// Storage - where the notified-complaints CSV lives
		StorageFile: getEnvOrDefault("STORAGE_FILE", "complaints.csv"),

		// Performance tuning - optimized defaults
		WorkerPoolSize: getEnvInt("WORKER_POOL_SIZE", 10),              // 10 concurrent workers
		BatchSize:      getEnvInt("BATCH_SIZE", 50),                    // Batch 50 records before CSV write
		HTTPMaxConns:   getEnvInt("HTTP_MAX_CONNS", 100),               // 100 connection pool size
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 30*time.Second), // 30s HTTP timeout

		// Reporting - default 18:00 local time
		ReportHour: getEnvInt("REPORT_HOUR", 18),
	}

	// Step 3: Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and values are sensible.
//
// Validation rules:
//   - BaseURL, Username and Password must be non-empty
//   - Numeric values must be positive (negative values don't make sense)
//
// Returns:
//   - error: Descriptive error if validation fails, nil if all checks pass
func (c *Config) Validate() error {
	// Check required backend URL
	if c.BaseURL == "" {
		return fmt.Errorf("PORTAL_BASE_URL environment variable is required")
	}

	// Check required authentication credentials
	if c.Username == "" {
		return fmt.Errorf("PORTAL_USERNAME environment variable is required")
	}
	if c.Password == "" {
		return fmt.Errorf("PORTAL_PASSWORD environment variable is required")
	}

	// Validate numeric values are positive
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1, got %d", c.MaxPages)
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1, got %d", c.WorkerPoolSize)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize)
	}
	if c.ReportHour < 0 || c.ReportHour > 23 {
		return fmt.Errorf("REPORT_HOUR must be between 0 and 23, got %d", c.ReportHour)
	}

	return nil
}

// Helper functions for environment variable parsing

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an integer or a default if not set/invalid
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "5s", "10m", "1h30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
