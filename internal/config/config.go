package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Remote collaborators. The chat API serves the completion stream and
	// per-conversation history; the auth API serves check/refresh/logout.
	ChatAPIBaseURL string
	AuthAPIBaseURL string

	// Where unauthenticated users are sent, and where the login page sends
	// users to start the external OAuth flow.
	LoginPath      string
	GoogleLoginURL string

	// History
	HistoryLimit int

	// Timeouts
	StreamReadTimeout  time.Duration
	AuthRequestTimeout time.Duration
	HistoryTimeout     time.Duration

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string

	// Model catalog
	ModelCatalog *ModelCatalog
}

var AppConfig *Config

const (
	DefaultStreamReadTimeout  = 5 * time.Minute
	DefaultAuthRequestTimeout = 10 * time.Second
	DefaultHistoryTimeout     = 15 * time.Second
)

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	authBase := getEnvOrDefault("AUTH_API_BASE_URL", "http://localhost:8081")

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		ChatAPIBaseURL: getEnvOrDefault("CHAT_API_BASE_URL", "http://localhost:8081"),
		AuthAPIBaseURL: authBase,

		LoginPath:      getEnvOrDefault("LOGIN_PATH", "/login"),
		GoogleLoginURL: getEnvOrDefault("GOOGLE_LOGIN_URL", authBase+"/auth/google/login"),

		HistoryLimit: getEnvAsInt("HISTORY_LIMIT", 50),

		StreamReadTimeout:  getEnvAsDuration("STREAM_READ_TIMEOUT", DefaultStreamReadTimeout),
		AuthRequestTimeout: getEnvAsDuration("AUTH_REQUEST_TIMEOUT", DefaultAuthRequestTimeout),
		HistoryTimeout:     getEnvAsDuration("HISTORY_TIMEOUT", DefaultHistoryTimeout),

		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 15),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	catalogPath := getEnvOrDefault("MODEL_CATALOG_FILE", "models.yaml")
	catalog, err := LoadModelCatalog(catalogPath)
	if err != nil {
		log.Printf("Failed to load model catalog from %s, using built-in defaults: %v", catalogPath, err)
		catalog = DefaultModelCatalog()
	}
	AppConfig.ModelCatalog = catalog
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
