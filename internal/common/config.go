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
	OCR      OCRConfig
	Uploads  UploadConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
}

// OCRConfig holds extraction pipeline configuration
type OCRConfig struct {
	Magick   string // binary name or absolute path; if empty -> "magick"
	Language string // default "eng"
	DPI      int    // rasterization density, default 300
	Quality  int    // raster JPEG quality, default 100
	MaxPages int    // 0 = no limit
}

// UploadConfig holds upload handling and registry configuration
type UploadConfig struct {
	Dir            string        // where multipart uploads land on disk
	RegistryPath   string        // sqlite file backing the upload registry
	TTL            time.Duration // how long an unprocessed upload is kept
	SweepInterval  time.Duration
	MaxSizeBytes   int64
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":3001"),
		},
		OCR: OCRConfig{
			Magick:   getEnv("MAGICK_PATH", "magick"),
			Language: getEnv("OCR_LANG", "eng"),
			DPI:      getEnvAsInt("OCR_DPI", 300),
			Quality:  getEnvAsInt("OCR_QUALITY", 100),
			MaxPages: getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Uploads: UploadConfig{
			Dir:            getEnv("UPLOAD_DIR", "./uploads/temp"),
			RegistryPath:   getEnv("REGISTRY_PATH", "./uploads/registry.db"),
			TTL:            getEnvAsDuration("UPLOAD_TTL", 24*time.Hour),
			SweepInterval:  getEnvAsDuration("UPLOAD_SWEEP_INTERVAL", 10*time.Minute),
			MaxSizeBytes:   getEnvAsInt64("UPLOAD_MAX_BYTES", 10<<20),
			Workers:        getEnvAsInt("PROCESS_WORKERS", 4),
			QueueSize:      getEnvAsInt("PROCESS_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
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
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Uploads.Dir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOAD_DIR is required", ErrInvalidInput)
	}
	if c.Uploads.MaxSizeBytes <= 0 {
		return NewAppError("CONFIG_ERROR", "UPLOAD_MAX_BYTES must be positive", ErrInvalidInput)
	}
	return nil
}
