package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	BaseURL string

	Webhook WebhookConfig
}

type WebhookConfig struct {
	Timeout    time.Duration
	Workers    int
	QueueSize  int
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	accessExpiry, err := time.ParseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"))
	if err != nil {
		refreshExpiry = 168 * time.Hour
	}

	webhookTimeout, err := time.ParseDuration(getEnv("WEBHOOK_TIMEOUT", "30s"))
	if err != nil {
		webhookTimeout = 30 * time.Second
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		Webhook: WebhookConfig{
			Timeout:    webhookTimeout,
			Workers:    getEnvInt("WEBHOOK_WORKERS", 4),
			QueueSize:  getEnvInt("WEBHOOK_QUEUE_SIZE", 256),
			MaxRetries: getEnvInt("WEBHOOK_MAX_RETRIES", 5),
		},
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// APIKeyEnvTag is the literal prefixed to issued API keys, distinguishing
// production issuance from everything else.
func (c *Config) APIKeyEnvTag() string {
	if c.IsProduction() {
		return "live"
	}
	return "test"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
