package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Payment processing configuration
	Payment PaymentConfig

	// Inventory ledger configuration
	Ledger LedgerConfig

	// Domain event configuration
	Events EventsConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string // development, staging, production
	LogLevel        string // debug, info, warn, error
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration.
// An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	MigrationsDir      string
	RunMigrations      bool
}

// PaymentConfig holds payment gateway simulation settings
type PaymentConfig struct {
	ProcessingLatency time.Duration // Simulated gateway round trip
	Currency          string
}

// LedgerConfig holds inventory ledger settings
type LedgerConfig struct {
	MaxRetries    int    // Optimistic update attempts per reservation
	AuditEnabled  bool   // Run the periodic ledger audit
	AuditSchedule string // Cron expression with seconds field
}

// EventsConfig holds the domain event broker settings.
// An empty BrokerURL logs events instead of publishing them.
type EventsConfig struct {
	BrokerURL string
	Exchange  string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			MigrationsDir:      getEnv("DATABASE_MIGRATIONS_DIR", "migrations"),
			RunMigrations:      getEnvAsBool("DATABASE_RUN_MIGRATIONS", true),
		},
		Payment: PaymentConfig{
			ProcessingLatency: time.Duration(getEnvAsInt("PAYMENT_PROCESSING_LATENCY_MS", 1500)) * time.Millisecond,
			Currency:          getEnv("PAYMENT_CURRENCY", "PEN"),
		},
		Ledger: LedgerConfig{
			MaxRetries:    getEnvAsInt("LEDGER_MAX_RETRIES", 5),
			AuditEnabled:  getEnvAsBool("LEDGER_AUDIT_ENABLED", true),
			AuditSchedule: getEnv("LEDGER_AUDIT_SCHEDULE", "0 */15 * * * *"), // every 15 minutes
		},
		Events: EventsConfig{
			BrokerURL: getEnv("RABBITMQ_URL", ""),
			Exchange:  getEnv("EVENTS_EXCHANGE", "bookings"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid ENVIRONMENT: %s (must be development, staging or production)", c.Server.Environment)
	}

	if c.Payment.ProcessingLatency < 0 {
		return fmt.Errorf("PAYMENT_PROCESSING_LATENCY_MS must not be negative")
	}

	if c.Payment.Currency == "" {
		return fmt.Errorf("PAYMENT_CURRENCY is required")
	}

	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be at least 1")
	}

	if c.Ledger.AuditEnabled && c.Ledger.AuditSchedule == "" {
		return fmt.Errorf("LEDGER_AUDIT_SCHEDULE is required when the ledger audit is enabled")
	}

	if c.Events.BrokerURL != "" && c.Events.Exchange == "" {
		return fmt.Errorf("EVENTS_EXCHANGE is required when RABBITMQ_URL is set")
	}

	return nil
}

// UsesDatabase reports whether a Postgres database is configured
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
