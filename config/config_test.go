package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuberootdigital/sig-backend/config"
	"github.com/cuberootdigital/sig-backend/logger"
)

var keys = []string{
	"HOST", "PORT", "BASE_PATH", "PUBLIC_URL", "DATA_DIR", "STORE_BACKEND", "SQLITE_PATH",
	"DATABASE_URL", "ALLOWED_ORIGINS", "MAX_UPLOAD_MB", "PUBLIC_DIR", "CERT_CHECK_PORT",
	"CERT_CHECK_TIMEOUT", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	"LOG_FILE_PATH", "LOG_MAX_SIZE", "LOG_MAX_BACKUPS", "LOG_MAX_AGE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, "/tools-backend/sig", cfg.BasePath)
	assert.Equal(t, "https://demo.cuberootdigital.in/tools-backend/sig", cfg.PublicURL)
	assert.Equal(t, "uploads", cfg.DataDir)
	assert.Equal(t, "disk", cfg.StoreBackend)
	assert.Equal(t, filepath.Join("uploads", "records.db"), cfg.SqlitePath)
	assert.Equal(t, []string{"https://demo.cuberootdigital.in"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 443, cfg.CertCheckPort)
	assert.Equal(t, 10*time.Second, cfg.CertCheckTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, logger.Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		FilePath:   "logs/sig-backend.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}, cfg.Log)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("BASE_PATH", "/api/")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("CERT_CHECK_TIMEOUT", "3s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "/api", cfg.BasePath)
	assert.Equal(t, "/srv/data/records.db", cfg.SqlitePath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 3*time.Second, cfg.CertCheckTimeout)
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_UPLOAD_MB", "lots")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxUploadMB)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even empty.
	require.NoError(t, os.Unsetenv("CERT_CHECK_PORT"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CERT_CHECK_PORT=8443\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8443, cfg.CertCheckPort)
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := config.Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func validConfig() *config.Config {
	return &config.Config{
		Port:             "3000",
		BasePath:         "/tools-backend/sig",
		StoreBackend:     "disk",
		MaxUploadMB:      50,
		CertCheckPort:    443,
		CertCheckTimeout: time.Second,
		ShutdownTimeout:  time.Second,
		Log:              logger.Config{MaxSize: 100, MaxBackups: 3, MaxAge: 28},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"valid config", func(c *config.Config) {}, false},
		{"empty base path", func(c *config.Config) { c.BasePath = "" }, false},
		{"memory backend", func(c *config.Config) { c.StoreBackend = "memory" }, false},
		{"postgres with url", func(c *config.Config) {
			c.StoreBackend = "postgres"
			c.DatabaseURL = "postgres://localhost/sig"
		}, false},
		{"unknown backend", func(c *config.Config) { c.StoreBackend = "json" }, true},
		{"postgres without url", func(c *config.Config) { c.StoreBackend = "postgres" }, true},
		{"relative base path", func(c *config.Config) { c.BasePath = "sig" }, true},
		{"zero upload size", func(c *config.Config) { c.MaxUploadMB = 0 }, true},
		{"port out of range", func(c *config.Config) { c.CertCheckPort = 70000 }, true},
		{"zero cert timeout", func(c *config.Config) { c.CertCheckTimeout = 0 }, true},
		{"negative shutdown timeout", func(c *config.Config) { c.ShutdownTimeout = -time.Second }, true},
		{"zero log size", func(c *config.Config) { c.Log.MaxSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
