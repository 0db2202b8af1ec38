package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Payment provider selection: "mock" or "gateway". Resolved once at
	// orchestrator construction.
	PaymentProvider      string
	GatewayBaseURL       string
	GatewayAPIKey        string
	GatewayWebhookSecret string
	// AllowMockInProduction permits the simulated provider outside
	// development. Off by default.
	AllowMockInProduction bool

	Webhook WebhookConfig
}

// WebhookConfig bounds the outbound delivery engine and the inbound rate
// limit. The rate limit only takes effect when redis is configured.
type WebhookConfig struct {
	MaxAttempts    int
	RequestTimeout time.Duration
	BackoffBase    time.Duration
	DedupTTL       time.Duration
	InboundRate    float64
	InboundBurst   int
}

const (
	ProviderMock    = "mock"
	ProviderGateway = "gateway"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "payments"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "payments"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		PaymentProvider:       normalizeProvider(getenv("PAYMENT_PROVIDER", ProviderMock)),
		GatewayBaseURL:        strings.TrimSpace(getenv("GATEWAY_BASE_URL", "")),
		GatewayAPIKey:         strings.TrimSpace(getenv("GATEWAY_API_KEY", "")),
		GatewayWebhookSecret:  strings.TrimSpace(getenv("GATEWAY_WEBHOOK_SECRET", "")),
		AllowMockInProduction: getenvBool("ALLOW_MOCK_IN_PRODUCTION", false),

		Webhook: WebhookConfig{
			MaxAttempts:    getenvInt("WEBHOOK_MAX_ATTEMPTS", 3),
			RequestTimeout: getenvDuration("WEBHOOK_REQUEST_TIMEOUT", 10*time.Second),
			BackoffBase:    getenvDuration("WEBHOOK_BACKOFF_BASE", time.Second),
			DedupTTL:       getenvDuration("WEBHOOK_DEDUP_TTL", 24*time.Hour),
			InboundRate:    getenvFloat("WEBHOOK_INBOUND_RATE", 10),
			InboundBurst:   getenvInt("WEBHOOK_INBOUND_BURST", 30),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeProvider(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ProviderGateway, "real":
		return ProviderGateway
	default:
		return ProviderMock
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
