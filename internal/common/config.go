package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Mail     MailConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StorageConfig holds object-storage configuration
type StorageConfig struct {
	Region        string
	Bucket        string
	SignedURLTTL  time.Duration
	UploadTimeout time.Duration
	SignTimeout   time.Duration
}

// MailConfig holds email-transport configuration
type MailConfig struct {
	BaseURL       string
	APIKey        string
	FromAddress   string
	ReviewerInbox string
	SendTimeout   time.Duration
}

// PipelineConfig bounds the fan-out stages of a single submission
type PipelineConfig struct {
	UploadConcurrency int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Region: getEnv("AWS_REGION", "ap-south-1"),
			Bucket: getEnv("DOCUMENTS_BUCKET", "partner-documents"),
			// 7 days. Links already sitting in reviewer inboxes assume this
			// exact lifetime; do not shorten without a migration plan.
			SignedURLTTL:  getEnvAsDuration("SIGNED_URL_TTL", 604800*time.Second),
			UploadTimeout: getEnvAsDuration("STORAGE_UPLOAD_TIMEOUT", 30*time.Second),
			SignTimeout:   getEnvAsDuration("STORAGE_SIGN_TIMEOUT", 10*time.Second),
		},
		Mail: MailConfig{
			BaseURL:       getEnv("MAIL_API_URL", "https://api.resend.com"),
			APIKey:        getEnv("MAIL_API_KEY", ""),
			FromAddress:   getEnv("MAIL_FROM", "onboarding@kiranafin.in"),
			ReviewerInbox: getEnv("REVIEWER_INBOX", ""),
			SendTimeout:   getEnvAsDuration("MAIL_SEND_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			UploadConcurrency: getEnvAsInt("UPLOAD_CONCURRENCY", 8),
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "DOCUMENTS_BUCKET is required", ErrInvalidInput)
	}
	if c.Mail.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "MAIL_API_KEY is required", ErrInvalidInput)
	}
	if c.Mail.ReviewerInbox == "" {
		return NewAppError("CONFIG_ERROR", "REVIEWER_INBOX is required", ErrInvalidInput)
	}
	if c.Pipeline.UploadConcurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "UPLOAD_CONCURRENCY must be positive", ErrInvalidInput)
	}
	return nil
}
