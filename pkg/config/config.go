package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SocialProviders lists the providers that can be configured through
// SOCIAL_<PROVIDER>_* variables.
var SocialProviders = []string{"instagram", "tiktok", "facebook"}

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Cache
	CacheBackend         string
	RedisURL             string
	SubscriptionCacheTTL time.Duration

	// RabbitMQ
	RabbitMQURL string

	// Backend RPC
	BackendURL          string
	BackendAPIKey       string
	BackendSessionToken string
	PremiumCheckPath    string

	// Retry
	RetryMaxAttempts      int
	RetryBaseDelay        time.Duration
	RetryMaxDelay         time.Duration
	RetryTimeout          time.Duration
	CircuitBreakerEnabled bool

	// Client storage
	ClientStorePath string

	// Social
	Social map[string]SocialProviderConfig

	// Outbox
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int
	OutboxMaxRetries    int
	OutboxRetentionDays int

	// Worker
	WorkerHealthAddr string

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// SocialProviderConfig holds OAuth endpoints for one social provider.
type SocialProviderConfig struct {
	ClientID string
	AuthURL  string
	TokenURL string
	Scopes   []string
}

// Configured reports whether the provider has enough settings to build an
// authorization URL.
func (c SocialProviderConfig) Configured() bool {
	return c.ClientID != "" && c.AuthURL != ""
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	driver := getEnv("DATABASE_DRIVER", "")
	if driver == "" {
		driver = "sqlite"
		if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
			driver = "postgres"
		}
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("NOURISH_USER_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseURL:    databaseURL,
		DatabaseDriver: driver,
		SQLitePath:     getEnv("SQLITE_PATH", ""),
		LocalMode:      driver == "sqlite",

		CacheBackend:         getEnv("CACHE_BACKEND", "memory"),
		RedisURL:             getEnv("REDIS_URL", ""),
		SubscriptionCacheTTL: getDurationEnv("SUBSCRIPTION_CACHE_TTL", 5*time.Minute),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		BackendURL:          getEnv("BACKEND_URL", "http://localhost:54321"),
		BackendAPIKey:       getEnv("BACKEND_API_KEY", ""),
		BackendSessionToken: getEnv("BACKEND_SESSION_TOKEN", ""),
		PremiumCheckPath:    getEnv("PREMIUM_CHECK_PATH", "/functions/v1/check-premium-access"),

		RetryMaxAttempts:      getIntEnv("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:        getDurationEnv("RETRY_BASE_DELAY", 500*time.Millisecond),
		RetryMaxDelay:         getDurationEnv("RETRY_MAX_DELAY", 5*time.Second),
		RetryTimeout:          getDurationEnv("RETRY_TIMEOUT", 10*time.Second),
		CircuitBreakerEnabled: getBoolEnv("CIRCUIT_BREAKER_ENABLED", true),

		ClientStorePath: getEnv("CLIENT_STORE_PATH", ""),

		Social: loadSocialProviders(),

		OutboxPollInterval:  getDurationEnv("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:     getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:    getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays: getIntEnv("OUTBOX_RETENTION_DAYS", 7),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesRedisCache reports whether subscription snapshots are shared through Redis.
func (c *Config) UsesRedisCache() bool {
	return c.CacheBackend == "redis" && c.RedisURL != ""
}

func loadSocialProviders() map[string]SocialProviderConfig {
	providers := make(map[string]SocialProviderConfig, len(SocialProviders))
	for _, name := range SocialProviders {
		prefix := "SOCIAL_" + strings.ToUpper(name) + "_"
		providers[name] = SocialProviderConfig{
			ClientID: getEnv(prefix+"CLIENT_ID", ""),
			AuthURL:  getEnv(prefix+"AUTH_URL", ""),
			TokenURL: getEnv(prefix+"TOKEN_URL", ""),
			Scopes:   splitList(getEnv(prefix+"SCOPES", "")),
		}
	}
	return providers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
