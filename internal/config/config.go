package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port        string
	StoreDriver string
	MongoURI    string
	DBName      string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmails     []string
	CORSOrigins     []string

	RedisURL         string
	CartTTL          time.Duration
	CartSyncInterval time.Duration

	RabbitMQURL   string
	OrderExchange string

	PaystackPublicKey string
	PaystackSecretKey string
	PaystackBaseURL   string
	Currency          string

	ResendAPIKey     string
	ResendBaseURL    string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	EmailFrom        string
	AdminNotifyEmail string
	ContactEmailTo   string
	AppURL           string

	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int

	UploadDir string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		StoreDriver: getEnvOrDefault("STORE_DRIVER", "mongo"),
		MongoURI:    getEnvOrDefault("MONGO_URI", ""),
		DBName:      getEnvOrDefault("DB_NAME", "pureplatter"),

		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		AdminEmails:     getListEnv("ADMIN_EMAILS"),
		CORSOrigins:     getListEnv("CORS_ORIGINS"),

		RedisURL:         getEnvOrDefault("REDIS_URL", ""),
		CartTTL:          getDurationEnv("CART_TTL", 72, time.Hour),
		CartSyncInterval: getDurationEnv("CART_SYNC_INTERVAL", 1000, time.Millisecond),

		RabbitMQURL:   getEnvOrDefault("RABBITMQ_URL", ""),
		OrderExchange: getEnvOrDefault("ORDER_EXCHANGE", "orders"),

		PaystackPublicKey: getEnvOrDefault("PAYSTACK_PUBLIC_KEY", ""),
		PaystackSecretKey: getEnvOrDefault("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:   getEnvOrDefault("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		Currency:          getEnvOrDefault("CURRENCY", "GHS"),

		ResendAPIKey:     getEnvOrDefault("RESEND_API_KEY", ""),
		ResendBaseURL:    getEnvOrDefault("RESEND_BASE_URL", "https://api.resend.com"),
		SMTPHost:         getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUser:         getEnvOrDefault("SMTP_USER", ""),
		SMTPPassword:     getEnvOrDefault("SMTP_PASSWORD", ""),
		EmailFrom:        getEnvOrDefault("EMAIL_FROM", "Pure Platter <orders@pureplatter.local>"),
		AdminNotifyEmail: getEnvOrDefault("ADMIN_NOTIFY_EMAIL", ""),
		ContactEmailTo:   getEnvOrDefault("CONTACT_EMAIL_TO", ""),
		AppURL:           getEnvOrDefault("APP_URL", "http://localhost:3000"),

		OutboxPollInterval: getDurationEnv("OUTBOX_POLL_INTERVAL", 2, time.Second),
		OutboxMaxAttempts:  getIntEnv("OUTBOX_MAX_ATTEMPTS", 5),

		UploadDir: getEnvOrDefault("UPLOAD_DIR", "./uploads"),
	}
}

// IsAdminEmail reports whether email is on the administrator allow-list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, allowed := range c.AdminEmails {
		if strings.ToLower(allowed) == email {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
