package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-compass/internal/progress"
)

const testSecret = "test-secret-at-least-16-bytes"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, progress.Replace, cfg.Progress.MergeMode)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "http://localhost:5000/api/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.Redis.Address)
	assert.Empty(t, cfg.Neo4j.URI)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("DB_TIMEOUT", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PROGRESS_MERGE_MODE", "union")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("LOG_ADD_SOURCE", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, progress.Union, cfg.Progress.MergeMode)
	assert.Equal(t, 0, cfg.Redis.DB, "unparsable numbers fall back to the default")
	assert.True(t, cfg.Log.AddSource)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET="+testSecret+"\nSEED_DIR=fixtures\n"), 0o600))
	// godotenv never overrides variables that are already set, so clear
	// the ones the file provides and restore them afterwards.
	for _, key := range []string{"JWT_SECRET", "SEED_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fixtures", cfg.Seed.Dir)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestLoad_UnknownMergeMode(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PROGRESS_MERGE_MODE", "append")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 5000},
			Database: DatabaseConfig{Path: "x.db", Timeout: time.Second},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Log:      LogConfig{Format: "text"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero timeout", func(c *Config) { c.Database.Timeout = 0 }},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }},
		{"github without secret", func(c *Config) { c.GitHub.ClientID = "id" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
