package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	Clerk    ClerkConfig
	Razorpay RazorpayConfig

	AllowedOrigins []string
	WebhookTimeout time.Duration

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig

	DiscountConfigPath string
}

type ClerkConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	OrderRate     float64
	OrderBurst    int
	LockTTL       time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	port := strings.TrimSpace(getenv("PORT", "8787"))

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "checkoutrelay"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     ":" + port,
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Clerk: ClerkConfig{
			SecretKey:     strings.TrimSpace(getenv("CLERK_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("CLERK_WEBHOOK_SECRET", "")),
			APIURL:        strings.TrimSpace(getenv("CLERK_API_URL", "")),
		},
		Razorpay: RazorpayConfig{
			KeyID:         strings.TrimSpace(getenv("RAZORPAY_KEY_ID", "")),
			KeySecret:     strings.TrimSpace(getenv("RAZORPAY_KEY_SECRET", "")),
			WebhookSecret: strings.TrimSpace(getenv("RAZORPAY_WEBHOOK_SECRET", "")),
			Currency:      strings.ToUpper(strings.TrimSpace(getenv("RAZORPAY_CURRENCY", "INR"))),
		},
		AllowedOrigins:    parseList(getenv("ALLOWED_ORIGINS", "http://localhost:5173,https://monaarcclothing.com")),
		WebhookTimeout:    time.Duration(getenvInt("WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second,
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "checkoutrelay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "checkoutrelay.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			OrderRate:     getenvFloat("ORDER_RATE_PER_SECOND", 0.5),
			OrderBurst:    getenvInt("ORDER_BURST", 5),
			LockTTL:       time.Duration(getenvInt("CONSUME_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		DiscountConfigPath: strings.TrimSpace(getenv("DISCOUNT_CONFIG_PATH", "")),
	}

	return cfg
}

// MissingSecrets lists the secret variables that are not set.
func (c Config) MissingSecrets() []string {
	var missing []string
	if c.Clerk.SecretKey == "" {
		missing = append(missing, "CLERK_SECRET_KEY")
	}
	if c.Clerk.WebhookSecret == "" {
		missing = append(missing, "CLERK_WEBHOOK_SECRET")
	}
	if c.Razorpay.KeyID == "" || c.Razorpay.KeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET")
	}
	if c.Razorpay.WebhookSecret == "" {
		missing = append(missing, "RAZORPAY_WEBHOOK_SECRET")
	}
	return missing
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
