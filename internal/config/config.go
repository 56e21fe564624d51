package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds application configuration, read from environment
// variables.
type Config struct {
	Port                string
	DatabaseURL         string
	RedisURL            string
	LogLevel            string
	FeedRefreshInterval time.Duration // How often the indicator store is rebuilt from Postgres
	AuditSyncInterval   time.Duration // How often queued audit entries are flushed to Postgres
	DBMaxOpenConns      int           // Maximum number of open database connections
	DBMaxIdleConns      int           // Maximum number of idle database connections
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	config := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		LogLevel:            getEnv("LOG_LEVEL", "debug"),
		FeedRefreshInterval: getEnvAsDuration("FEED_REFRESH_INTERVAL", 10*time.Minute),
		AuditSyncInterval:   getEnvAsDuration("AUDIT_SYNC_INTERVAL", 30*time.Second),
		DBMaxOpenConns:      getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:      getEnvAsInt("DB_MAX_IDLE_CONNS", 20),
	}

	// Validate required fields
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if config.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return config, nil
}

// getEnv reads an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer with a default fallback
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration reads an environment variable as a Go duration
// string ("30s", "10m") with a default fallback
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
