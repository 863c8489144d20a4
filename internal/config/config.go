package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	LogFile    string

	// DBDriver selects the store backend: "sqlite" (embedded file) or "postgres".
	DBDriver    string
	DatabaseURL string
	MaxDBConns  int

	// RedisURL enables the question bank cache. Empty disables it.
	RedisURL         string
	QuestionCacheTTL time.Duration

	JWTSecret string
	JWTExpiry time.Duration
	// TeacherPIN is the shared admin PIN, plain or as a bcrypt hash.
	TeacherPIN string
	// AdminGate requires a PIN-issued token on teacher endpoints.
	AdminGate         bool
	PINAttemptsPerMin int

	MaxUploadBytes int64
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted.
	AllowedOrigins []string

	ExportLang       string
	ExportTimezone   string
	DefaultExamTitle string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "3001"),
		GinMode:           getEnv("GIN_MODE", "release"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
		LogFile:           getEnv("LOG_FILE", ""),
		DBDriver:          getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:       getEnv("DATABASE_URL", "quiz.db"),
		MaxDBConns:        getEnvInt("MAX_DB_CONNS", 8),
		RedisURL:          getEnv("REDIS_URL", ""),
		QuestionCacheTTL:  time.Duration(getEnvInt("QUESTION_CACHE_TTL_SECONDS", 300)) * time.Second,
		JWTSecret:         getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 8)) * time.Hour,
		TeacherPIN:        getEnv("TEACHER_PIN", "1317"),
		AdminGate:         getEnvBool("ADMIN_GATE", false),
		PINAttemptsPerMin: getEnvInt("PIN_ATTEMPTS_PER_MINUTE", 10),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		ExportLang:        getEnv("EXPORT_LANG", "en"),
		ExportTimezone:    getEnv("EXPORT_TIMEZONE", "Local"),
		DefaultExamTitle:  getEnv("DEFAULT_EXAM_TITLE", "Knowledge Check"),
	}
}

// ExportLocation resolves ExportTimezone, falling back to the local zone.
func (c *Config) ExportLocation() *time.Location {
	if c.ExportTimezone == "" || c.ExportTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.ExportTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
