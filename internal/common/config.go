package common

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Parser   ParserConfig
	Batch    BatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ParserConfig holds text acquisition and intake limits
type ParserConfig struct {
	TextStrategy   string // "auto", "pdf-text" or "pdftotext"
	PdftotextBin   string
	MaxFileSize    int64
	MaxPages       int
	AllowEncrypted bool
	AcquireTimeout time.Duration
}

// BatchConfig holds batch and watch mode settings
type BatchConfig struct {
	Workers     int
	QueueSize   int
	Debounce    time.Duration
	MetricsAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Parser: ParserConfig{
			TextStrategy:   getEnv("TEXT_STRATEGY", "auto"),
			PdftotextBin:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			MaxFileSize:    getEnvAsInt64("MAX_FILE_SIZE", 50<<20),
			MaxPages:       getEnvAsInt("MAX_PAGES", 0),
			AllowEncrypted: getEnvAsBool("ALLOW_ENCRYPTED", false),
			AcquireTimeout: getEnvAsDuration("ACQUIRE_TIMEOUT", 30*time.Second),
		},
		Batch: BatchConfig{
			Workers:     getEnvAsInt("WORKERS", 4),
			QueueSize:   getEnvAsInt("QUEUE_SIZE", 64),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
			MetricsAddr: getEnv("METRICS_ADDR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("DB_URL", c.Database.DSN, Required).
		Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite")).
		Field("TEXT_STRATEGY", c.Parser.TextStrategy, OneOf("auto", "pdf-text", "pdftotext")).
		Field("WORKERS", c.Batch.Workers, Positive).
		Field("QUEUE_SIZE", c.Batch.QueueSize, Positive)
	if c.Parser.TextStrategy != "pdf-text" {
		v.Field("PDFTOTEXT_BIN", c.Parser.PdftotextBin, Required)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_MIN_CONNS %d exceeds DB_MAX_CONNS %d", c.Database.MinConns, c.Database.MaxConns), ErrInvalidInput)
	}
	return nil
}
