// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	CoinGecko CoinGeckoConfig

	// ReferenceCoin is the catalog id whose dominance is reported with the portfolio.
	ReferenceCoin string
	// LogoConcurrency bounds the per-cycle logo lookup fan-out.
	LogoConcurrency int

	// Cron schedules (robfig/cron syntax, seconds enabled)
	CatalogSchedule      string
	PriceSchedule        string
	CacheCleanupSchedule string
	MaintenanceSchedule  string

	// Off-site backups of config.db; disabled unless every R2 credential is set
	R2                  R2Config
	BackupSchedule      string
	BackupRetentionDays int
}

// R2Config holds Cloudflare R2 backup credentials
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Enabled reports whether every R2 credential is present
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// CoinGeckoConfig holds market-data provider settings
type CoinGeckoConfig struct {
	BaseURL         string
	APIKey          string
	VsCurrency      string
	CatalogPageSize int
	Timeout         time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("BAGZ_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		CoinGecko: CoinGeckoConfig{
			BaseURL:         getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			APIKey:          getEnv("COINGECKO_API_KEY", ""),
			VsCurrency:      getEnv("VS_CURRENCY", "usd"),
			CatalogPageSize: getEnvAsInt("CATALOG_PAGE_SIZE", 500),
			Timeout:         getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),
		},
		ReferenceCoin:        getEnv("REFERENCE_COIN", "bitcoin"),
		LogoConcurrency:      getEnvAsInt("LOGO_CONCURRENCY", 8),
		CatalogSchedule:      getEnv("CATALOG_SCHEDULE", "@every 30m"),
		PriceSchedule:        getEnv("PRICE_SCHEDULE", "@every 1m"),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "@daily"),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 4 * * 0"),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET", ""),
		},
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.CoinGecko.BaseURL == "" {
		return fmt.Errorf("COINGECKO_BASE_URL must not be empty")
	}
	if c.CoinGecko.CatalogPageSize <= 0 || c.CoinGecko.CatalogPageSize > 1000 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be between 1 and 1000, got %d", c.CoinGecko.CatalogPageSize)
	}
	if c.LogoConcurrency <= 0 {
		return fmt.Errorf("LOGO_CONCURRENCY must be positive, got %d", c.LogoConcurrency)
	}
	if c.BackupRetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.BackupRetentionDays)
	}
	if c.ReferenceCoin == "" {
		return fmt.Errorf("REFERENCE_COIN must not be empty")
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
