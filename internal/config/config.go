package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	LogLevel    string
	LogDir      string
	LogMaxFiles int

	// Forensic backend
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Direct session persistence (optional, bypasses the chat-sessions API)
	DatabaseURL string
	TablePrefix string

	// DemoMode swaps every backend collaborator for the in-memory sample case.
	DemoMode bool

	AutocompleteDebounce time.Duration
	PersistTimeout       time.Duration
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:                 getEnv("PORT", "8787"),
		Environment:          env,
		CORSOrigins:          getEnv("CORS_ORIGINS", "http://localhost:3000"),
		LogLevel:             getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		LogDir:               getEnv("LOG_DIR", ""),
		LogMaxFiles:          getEnvInt("LOG_MAX_FILES", 10),
		APIBaseURL:           getEnv("FORENSICFLOW_API_URL", "http://localhost:8000"),
		APIToken:             getEnv("FORENSICFLOW_TOKEN", ""),
		APITimeout:           getEnvDuration("API_TIMEOUT", 60*time.Second),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		TablePrefix:          getTablePrefix(env),
		DemoMode:             getEnv("DEMO_MODE", "false") == "true",
		AutocompleteDebounce: getEnvDuration("AUTOCOMPLETE_DEBOUNCE", 250*time.Millisecond),
		PersistTimeout:       getEnvDuration("PERSIST_TIMEOUT", 10*time.Second),
	}
}

// getDefaultLogLevel returns the default log level based on environment
func getDefaultLogLevel(env string) string {
	if env == "dev" {
		return "debug"
	}
	return "info"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
