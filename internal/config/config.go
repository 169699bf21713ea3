package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the web frontend configuration loaded from environment
// variables, optionally seeded from a .env file.
type Config struct {
	Port           string
	APIBaseURL     string
	SessionBackend string
	SessionSecret  string
	CSRFKey        string
	CookieSecure   bool
	AllowedOrigins []string
	LogLevel       slog.Level

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	MongoURI string
	MongoDB  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads envFile when it exists and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("env file not loaded", "path", envFile, "error", err)
		}
	}
	return &Config{
		Port:           getenv("PORT", "3000"),
		APIBaseURL:     strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		SessionBackend: getenv("SESSION_BACKEND", "redis"),
		SessionSecret:  getenv("SESSION_SECRET", ""),
		CSRFKey:        getenv("CSRF_KEY", ""),
		CookieSecure:   getenv("COOKIE_SECURE", "false") == "true",
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       parseLevel(getenv("LOG_LEVEL", "info")),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		PostgresDSN: getenv("POSTGRES_DSN", ""),

		MongoURI: getenv("MONGO_URI", ""),
		MongoDB:  getenv("MONGO_DB", "nutriplan_web"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "meal-plan-exports"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
