// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuberootdigital/sig-backend/logger"
)

// Config is the server configuration.
type Config struct {
	Host      string
	Port      string
	BasePath  string
	PublicURL string

	// Storage
	DataDir      string
	StoreBackend string
	SqlitePath   string
	DatabaseURL  string

	// HTTP
	AllowedOrigins  []string
	MaxUploadMB     int
	PublicDir       string
	ShutdownTimeout time.Duration

	// Certificate checks
	CertCheckPort    int
	CertCheckTimeout time.Duration

	Log logger.Config
}

var backends = map[string]bool{"disk": true, "memory": true, "sqlite": true, "postgres": true}

// Load reads a .env file when present, then the environment, and validates
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dataDir := env("DATA_DIR", "uploads")
	cfg := &Config{
		Host:      env("HOST", "0.0.0.0"),
		Port:      env("PORT", "3000"),
		BasePath:  strings.TrimRight(env("BASE_PATH", "/tools-backend/sig"), "/"),
		PublicURL: strings.TrimRight(env("PUBLIC_URL", "https://demo.cuberootdigital.in/tools-backend/sig"), "/"),

		DataDir:      dataDir,
		StoreBackend: env("STORE_BACKEND", "disk"),
		SqlitePath:   env("SQLITE_PATH", filepath.Join(dataDir, "records.db")),
		DatabaseURL:  env("DATABASE_URL", ""),

		AllowedOrigins:  splitList(env("ALLOWED_ORIGINS", "https://demo.cuberootdigital.in")),
		MaxUploadMB:     envInt("MAX_UPLOAD_MB", 50),
		PublicDir:       env("PUBLIC_DIR", ""),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		CertCheckPort:    envInt("CERT_CHECK_PORT", 443),
		CertCheckTimeout: envDuration("CERT_CHECK_TIMEOUT", 10*time.Second),

		Log: logger.Config{
			Level:      env("LOG_LEVEL", "info"),
			Format:     env("LOG_FORMAT", "json"),
			Output:     env("LOG_OUTPUT", logger.OutputStdout),
			FilePath:   env("LOG_FILE_PATH", "logs/sig-backend.log"),
			MaxSize:    envInt("LOG_MAX_SIZE", 100),
			MaxBackups: envInt("LOG_MAX_BACKUPS", 3),
			MaxAge:     envInt("LOG_MAX_AGE", 28),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if !backends[c.StoreBackend] {
		return fmt.Errorf("STORE_BACKEND %q is not one of disk, memory, sqlite, postgres", c.StoreBackend)
	}
	if c.StoreBackend == "postgres" && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the postgres backend")
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("BASE_PATH %q must start with /", c.BasePath)
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.CertCheckPort <= 0 || c.CertCheckPort > 65535 {
		return fmt.Errorf("CERT_CHECK_PORT %d is out of range", c.CertCheckPort)
	}
	if c.CertCheckTimeout <= 0 {
		return errors.New("CERT_CHECK_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Log.MaxSize <= 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return errors.New("LOG_MAX_SIZE must be positive and LOG_MAX_BACKUPS, LOG_MAX_AGE non-negative")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// MaxUploadBytes is the request body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
