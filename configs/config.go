package config

import (
	"os"
	"strconv"
	"time"
)

// Inquiry flow variants
const (
	InquiryFlowExtended = "extended" // name -> contact -> email
	InquiryFlowShort    = "short"    // name -> contact
)

// Config holds the application configuration
type Config struct {
	Port          string
	Environment   string
	DatabasePath  string
	RedisURL      string
	SessionTTL    time.Duration
	IntentsPath   string
	InquiryFlow   string
	APIKey        string
	AdminUsername string
	AdminPassword string

	ResendAPIKey   string
	LeadNotifyFrom string
	LeadNotifyTo   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	flow := getEnv("INQUIRY_FLOW", InquiryFlowExtended)
	if flow != InquiryFlowShort {
		flow = InquiryFlowExtended
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DatabasePath:   getEnv("DATABASE_PATH", "silverbot.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
		SessionTTL:     getDurationEnv("SESSION_TTL", 14*24*time.Hour),
		IntentsPath:    getEnv("INTENTS_PATH", "configs/intents.yaml"),
		InquiryFlow:    flow,
		APIKey:         getEnv("API_KEY", ""),
		AdminUsername:  getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		ResendAPIKey:   getEnv("RESEND_API_KEY", ""),
		LeadNotifyFrom: getEnv("LEAD_NOTIFY_FROM", "SilverBot <noreply@silverbot.local>"),
		LeadNotifyTo:   getEnv("LEAD_NOTIFY_TO", ""),
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("36h") or a plain number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
