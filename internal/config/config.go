// Package config loads the server configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvMemory runs the server on the in-memory store.
const EnvMemory = "memory"

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Policy      PolicyConfig
	Idempotency IdempotencyConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	URL              string
	MaxConns         int32
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether the lookup cache should be used.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

// Enabled reports whether bearer tokens are validated.
func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

type PolicyConfig struct {
	IssueApprovalRule string
}

type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load reads the configuration. DATABASE_URL is required unless APP_ENV is "memory".
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("APP_PORT", "8080"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:              os.Getenv("DATABASE_URL"),
			MaxConns:         int32(getEnvInt("DB_MAX_CONNS", 20)),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnvDuration("LOOKUP_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: getEnv("JWT_ISSUER", "spareflow"),
		},
		Policy: PolicyConfig{
			IssueApprovalRule: os.Getenv("ISSUE_APPROVAL_RULE"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: getEnvBool("IDEMPOTENCY_ENABLED", false),
			TTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}

	if cfg.Database.URL == "" && !cfg.InMemory() {
		return nil, fmt.Errorf("DATABASE_URL is required unless APP_ENV=%s", EnvMemory)
	}
	return cfg, nil
}

// InMemory reports whether the process should use the in-memory store.
func (c *Config) InMemory() bool {
	return c.Server.Env == EnvMemory
}

// Development reports whether logs should be human-readable.
func (c *Config) Development() bool {
	return c.Server.Env == "development" || c.Server.Env == EnvMemory
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
