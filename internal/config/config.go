// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Whapi channel credentials and endpoint.
	WhapiAPIURL    string
	WhapiAPIToken  string
	WhapiChannelID string
	WhatsAppNumber string

	// Assessment backend.
	BackendAPIURL  string
	BackendTimeout time.Duration
	ResultsBaseURL string

	// Conversation state store.
	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	SessionTimeout       time.Duration
	AllowMemoryStateOnly bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8765"),
		Env:      getEnv("ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		WhapiAPIURL:    getEnv("WHAPI_API_URL", "https://gate.whapi.cloud"),
		WhapiAPIToken:  getEnv("WHAPI_API_TOKEN", ""),
		WhapiChannelID: getEnv("WHAPI_CHANNEL_ID", ""),
		WhatsAppNumber: getEnv("WHATSAPP_NUMBER", ""),

		BackendAPIURL:  getEnv("BACKEND_API_URL", "http://localhost:8000"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 60*time.Second),
		ResultsBaseURL: getEnv("RESULTS_BASE_URL", "https://brainytots.com/pages/assessment-results"),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		SessionTimeout:       time.Duration(getEnvAsInt("SESSION_TIMEOUT_HOURS", 24)) * time.Hour,
		AllowMemoryStateOnly: getEnvAsBool("ALLOW_MEMORY_STATE_STORE", false),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
