package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// StoreDriver selects the persistence backend: "postgres" or "memory".
	StoreDriver string

	// JWT
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// Login (simulated one-time code)
	LoginDevCode string
	LoginCodeTTL time.Duration

	// Similarity oracle
	GeminiAPIKey     string
	GeminiModel      string
	OracleTimeout    time.Duration
	MatchConcurrency int

	// Notifications
	NotifyWebhookURL string
	NotifyQueueSize  int

	// Admin
	AdminEmails string
	AdminToken  string

	// Server
	Port        string
	CORSOrigins string

	// Campus registry
	CampusesConfigPath string

	LogRetentionDays int
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "foundit_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "24h"), 24*time.Hour),

		LoginDevCode: getEnv("LOGIN_DEV_CODE", "1234"),
		LoginCodeTTL: parseDuration(getEnv("LOGIN_CODE_TTL", "10m"), 10*time.Minute),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		OracleTimeout:    parseDuration(getEnv("ORACLE_TIMEOUT", "20s"), 20*time.Second),
		MatchConcurrency: parseInt(getEnv("MATCH_CONCURRENCY", "4"), 4),

		NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		NotifyQueueSize:  parseInt(getEnv("NOTIFY_QUEUE_SIZE", "64"), 64),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		CampusesConfigPath: getEnv("CAMPUSES_CONFIG_PATH", "campuses.json"),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UsesPostgres reports whether the service persists to Postgres.
func (c *Config) UsesPostgres() bool {
	return c.StoreDriver != "memory"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
