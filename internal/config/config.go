package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv     string
	Port        string
	JWTSecret   string
	EncKey      string
	Database    DatabaseConfig
	Marketplace MarketplaceConfig
	Engine      *EngineConfig
	Metrics     MetricsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Debug    bool
}

// MarketplaceConfig describes how to reach the marketplace platform API
type MarketplaceConfig struct {
	BaseURL        string
	TimeoutSeconds int
	RequestsPerSec float64 // client-side pacing per tenant, 0 disables it
	UserAgent      string
}

// MetricsConfig selects the metrics exporter
type MetricsConfig struct {
	Exporter string // scraper, grpc or none
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3210"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		EncKey:    os.Getenv("ENC_KEY"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "eckmarket"),
			Debug:    getBoolEnv("DB_DEBUG", false),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:        strings.TrimRight(getEnv("MARKETPLACE_BASE_URL", "https://api.trendyol.com/sapigw"), "/"),
			TimeoutSeconds: getIntEnv("MARKETPLACE_TIMEOUT", 30),
			RequestsPerSec: getFloatEnv("MARKETPLACE_RPS", 0),
			UserAgent:      os.Getenv("MARKETPLACE_USER_AGENT"),
		},
		Engine: LoadEngineConfig(),
		Metrics: MetricsConfig{
			Exporter: getEnv("METRICS_EXPORTER", "scraper"),
		},
	}

	if cfg.Marketplace.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("MARKETPLACE_TIMEOUT must be positive")
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RequireServerSecrets checks the secrets the HTTP server cannot run without
func (c *Config) RequireServerSecrets() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.EncKey == "" {
		return fmt.Errorf("ENC_KEY is required")
	}
	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
