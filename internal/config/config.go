// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/code-compass/internal/progress"
)

// Config holds all configuration for code-compass
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	GitHub   GitHubConfig
	Redis    RedisConfig
	Neo4j    Neo4jConfig
	Progress ProgressConfig
	Seed     SeedConfig
	Log      LogConfig
}

type AppConfig struct {
	Env string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ClientURL      string
	AllowedOrigins []string
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	Path    string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// GitHubConfig enables GitHub login when ClientID is set.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// RedisConfig enables cross-instance notifications when Address is set.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// Neo4jConfig enables graph export when URI is set.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type ProgressConfig struct {
	MergeMode progress.MergeMode
}

// SeedConfig holds the directory read by the seed command
type SeedConfig struct {
	Dir string
}

type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads .env files (".env" when none are named; missing files are
// ignored) and then the process environment, which wins.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}

	port := getEnvAsInt("SERVER_PORT", 5000)
	mode, err := progress.ParseMergeMode(getEnv("PROGRESS_MERGE_MODE", string(progress.Replace)))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Path:    getEnv("DB_PATH", "data/code-compass.db"),
			Timeout: getEnvAsDuration("DB_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvAsDuration("TOKEN_TTL", 7*24*time.Hour),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GITHUB_CALLBACK_URL", fmt.Sprintf("http://localhost:%d/api/auth/github/callback", port)),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "code-compass:progress"),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", ""),
			Username: getEnv("NEO4J_USERNAME", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		},
		Progress: ProgressConfig{
			MergeMode: mode,
		},
		Seed: SeedConfig{
			Dir: getEnv("SEED_DIR", "seed"),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "text"),
			AddSource: getEnvAsBool("LOG_ADD_SOURCE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("invalid database timeout: %s", c.Database.Timeout)
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.GitHub.ClientID != "" && c.GitHub.ClientSecret == "" {
		return errors.New("GITHUB_CLIENT_SECRET is required when GITHUB_CLIENT_ID is set")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.App.Env == "development" }

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated value, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
