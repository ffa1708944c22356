// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// Store backend identifiers, selected at startup via STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
)

// Config holds the configuration for the mapping server.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Store backend selection. File layout fields apply to the file and s3
	// backends.
	StoreBackend string // memory | file | s3 (default "memory")
	StoreRoot    string // root directory (file) or key prefix (s3)
	ConfigFolder string // sub-folder for table schema documents (default "config")
	DataFolder   string // sub-folder for table row documents (default "data")

	// SeedFile optionally points at a declarative YAML seed applied at
	// startup.
	SeedFile string

	// S3 fields are required only for the s3 backend.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	// Rate limiting. Disabled when RateLimitRPS is zero.
	RateLimitRPS   float64 // sustained requests per second per client
	RateLimitBurst int     // bucket capacity (default: ceil of RPS, min 1)

	// Warnings collects non-fatal warnings generated during loading. They
	// are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil &&
		c.S3Endpoint != nil && c.S3Region != nil && c.S3Bucket != nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.StoreRoot == "" {
			return fmt.Errorf("STORE_ROOT is required for the file backend")
		}
	case BackendS3:
		if !c.HasS3Config() {
			return fmt.Errorf("KEY_ID, SECRET, ENDPOINT, REGION, and BUCKET are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory, file, or s3)", c.StoreBackend)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:   os.Getenv("LISTEN_ADDR"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
		Env:          os.Getenv("ENV"),
		StoreBackend: os.Getenv("STORE_BACKEND"),
		StoreRoot:    os.Getenv("STORE_ROOT"),
		ConfigFolder: os.Getenv("STORE_CONFIG_FOLDER"),
		DataFolder:   os.Getenv("STORE_DATA_FOLDER"),
		SeedFile:     os.Getenv("SEED_FILE"),
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendMemory
		cfg.Warnings = append(cfg.Warnings, "STORE_BACKEND not set, defaulting to the volatile in-memory backend")
	}

	// S3 fields are optional — only set if present.
	if v := os.Getenv("KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("REGION"); v != "" {
		cfg.S3Region = &v
	}
	if v := os.Getenv("BUCKET"); v != "" {
		cfg.S3Bucket = &v
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", v)
		}
		cfg.RateLimitBurst = n
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = int(math.Ceil(cfg.RateLimitRPS))
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	} else {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
