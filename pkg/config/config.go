package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Bot           BotConfig
	Database      DatabaseConfig
	AI            AIConfig
	Rates         RatesConfig
	Observability ObservabilityConfig
}

type BotConfig struct {
	Token              string
	RateLimitPerSecond int
	RateLimitBurst     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// AIConfig carries the model endpoint and a comma-separated pool of API
// keys that are rotated per request.
type AIConfig struct {
	BaseURL string
	Model   string
	APIKeys []string
}

type RatesConfig struct {
	PrimaryURL  string
	FallbackURL string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			Token:              getEnv("BOT_TOKEN", ""),
			RateLimitPerSecond: getEnvAsInt("BOT_RATE_LIMIT_PER_SECOND", 1),
			RateLimitBurst:     getEnvAsInt("BOT_RATE_LIMIT_BURST", 5),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ledger-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		AI: AIConfig{
			BaseURL: getEnv("AI_BASE_URL", ""),
			Model:   getEnv("AI_MODEL", ""),
			APIKeys: getEnvAsList("AI_API_KEYS"),
		},
		Rates: RatesConfig{
			PrimaryURL:  getEnv("RATES_PRIMARY_URL", ""),
			FallbackURL: getEnv("RATES_FALLBACK_URL", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	if len(cfg.AI.APIKeys) == 0 {
		return nil, errors.New("AI_API_KEYS is required")
	}

	if cfg.AI.Model == "" {
		return nil, errors.New("AI_MODEL is required")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var values []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
