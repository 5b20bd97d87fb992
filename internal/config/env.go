package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL        string
	AuthBaseURL       string
	AuthPublicKeyPath string

	RequestTimeout       time.Duration
	UploadTimeout        time.Duration
	SessionLookupTimeout time.Duration
	SessionInitTimeout   time.Duration

	LogFilePath string
	Environment string

	// Dev stub server knobs (cmd/devserver only).
	DevServerPort  string
	DevUploadMaxMB int
}

// LoadConfig loads the environment variables and returns config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8000"),
		AuthBaseURL:       getEnv("AUTH_BASE_URL", "http://localhost:9999"),
		AuthPublicKeyPath: getEnv("AUTH_PUBLIC_KEY_PATH", ""),

		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		UploadTimeout:        getEnvDuration("UPLOAD_TIMEOUT", 120*time.Second),
		SessionLookupTimeout: getEnvDuration("SESSION_LOOKUP_TIMEOUT", 5*time.Second),
		SessionInitTimeout:   getEnvDuration("SESSION_INIT_TIMEOUT", 10*time.Second),

		LogFilePath: getEnv("LOG_FILE_PATH", ""),
		Environment: getEnv("GO_ENV", "development"),

		DevServerPort:  getEnv("DEV_SERVER_PORT", "8000"),
		DevUploadMaxMB: getEnvInt("DEV_UPLOAD_MAX_MB", 25),
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
