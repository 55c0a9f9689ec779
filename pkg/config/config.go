// Package config provides environment-based configuration for the blood bank backend.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the backend.
type Config struct {
	// Database configuration
	DatabaseDSN string

	// Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Server configuration
	APIHost string
	APIPort int

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// Inventory configuration
	Inventory InventoryConfig

	// Worker configuration
	Worker WorkerConfig

	// Mail configuration for appointment confirmations and alerts
	Mail MailConfig

	// Geocoding configuration
	NominatimURL string

	// Privacy holds age key material for contact-detail encryption.
	Privacy PrivacyConfig

	// FAQRulesPath points to the YAML file with FAQ responder rules.
	FAQRulesPath string
}

// InventoryConfig holds blood inventory tuning.
type InventoryConfig struct {
	// ShelfLife is the duration after collection at which a unit expires.
	ShelfLife time.Duration
}

// WorkerConfig holds background worker tuning.
type WorkerConfig struct {
	// SweepInterval is how often the expiry sweep runs.
	SweepInterval time.Duration
	// ReminderLead is how long before an appointment a reminder is sent.
	ReminderLead time.Duration
}

// MailConfig holds SMTP settings. Empty Host disables outbound mail.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// PrivacyConfig holds age key material for encrypting donor contact details.
type PrivacyConfig struct {
	// AgePublicKey is the age public key for encryption.
	// Format: age1... (Bech32 encoded)
	AgePublicKey string
	// AgePrivateKey is the age private key for decryption.
	// Format: AGE-SECRET-KEY-1... (Bech32 encoded)
	AgePrivateKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/jeevandhara?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTExpiry:       getDurationEnv("JWT_EXPIRY", 8*time.Hour),
		APIHost:         getEnv("API_HOST", "0.0.0.0"),
		APIPort:         getIntEnv("API_PORT", 8080),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		Inventory: InventoryConfig{
			ShelfLife: time.Duration(getIntEnv("SHELF_LIFE_DAYS", 42)) * 24 * time.Hour,
		},
		Worker: WorkerConfig{
			SweepInterval: getDurationEnv("SWEEP_INTERVAL", 1*time.Hour),
			ReminderLead:  getDurationEnv("REMINDER_LEAD", 24*time.Hour),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@jeevandhara.org"),
		},
		NominatimURL: getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		Privacy: PrivacyConfig{
			AgePublicKey:  getEnv("AGE_PUBLIC_KEY", ""),
			AgePrivateKey: getEnv("AGE_PRIVATE_KEY", ""),
		},
		FAQRulesPath: getEnv("FAQ_RULES_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Inventory.ShelfLife <= 0 {
		return fmt.Errorf("SHELF_LIFE_DAYS must be positive")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	return &Config{
		DatabaseDSN:     getEnv("DATABASE_URL", "postgres://localhost:5432/jeevandhara?sslmode=disable"),
		JWTSecret:       getEnv("JWT_SECRET", "development-secret-do-not-use-in-production"),
		JWTExpiry:       8 * time.Hour,
		APIHost:         "127.0.0.1",
		APIPort:         8080,
		ShutdownTimeout: 30 * time.Second,
		Inventory:       InventoryConfig{ShelfLife: 42 * 24 * time.Hour},
		Worker: WorkerConfig{
			SweepInterval: time.Hour,
			ReminderLead:  24 * time.Hour,
		},
		NominatimURL: "https://nominatim.openstreetmap.org/search",
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns the environment variable as an int or a default.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getDurationEnv returns the environment variable as a duration or a default.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
