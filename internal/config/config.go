// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Session SessionConfig
	Records RecordsConfig
	Vault   VaultConfig
	Slack   SlackConfig
	Claude  ClaudeConfig
	Square  SquareConfig
	CORS    CORSConfig
	Log     LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host    string
	Port    int
	GinMode string
	SiteURL string
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
}

// SessionConfig holds session lifecycle policy.
type SessionConfig struct {
	TTL              time.Duration
	RefreshTTLOnRead bool
	DebugLogMax      int
	EncryptionKey    string
}

// RecordsConfig holds record store configuration.
type RecordsConfig struct {
	Type string

	MongoURI      string
	MongoDatabase string

	AirtableAPIKey string
	AirtableBaseID string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type string
}

// SlackConfig holds Slack integration configuration.
type SlackConfig struct {
	BotToken       string
	SupportChannel string
}

// ClaudeConfig holds completion provider configuration.
type ClaudeConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// SquareConfig holds payment processor configuration.
type SquareConfig struct {
	AccessToken string
	LocationID  string
	Environment string
}

// CORSConfig holds the allowed widget origins.
type CORSConfig struct {
	AllowOrigins []string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			GinMode: getEnv("GIN_MODE", "debug"),
			SiteURL: getEnv("SITE_URL", "https://heritagebox.com"),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			TTL:              time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			RefreshTTLOnRead: getEnvAsBool("SESSION_REFRESH_TTL_ON_READ", true),
			DebugLogMax:      getEnvAsInt("SESSION_DEBUG_LOG_MAX", 200),
			EncryptionKey:    getEnv("SESSION_ENCRYPTION_KEY", ""),
		},
		Records: RecordsConfig{
			Type:           getEnv("RECORDS_TYPE", "mongodb"),
			MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDatabase:  getEnv("MONGODB_DATABASE", "heritagebox"),
			AirtableAPIKey: getEnv("AIRTABLE_API_KEY", ""),
			AirtableBaseID: getEnv("AIRTABLE_BASE_ID", ""),
		},
		Vault: VaultConfig{
			Type: getEnv("VAULT_TYPE", "dotenv"),
		},
		Slack: SlackConfig{
			BotToken:       getEnv("SLACK_BOT_TOKEN", ""),
			SupportChannel: getEnv("SLACK_SUPPORT_CHANNEL", "#vip-sales"),
		},
		Claude: ClaudeConfig{
			APIKey:    getEnv("CLAUDE_API_KEY", ""),
			Model:     getEnv("CLAUDE_MODEL", ""),
			MaxTokens: getEnvAsInt("CLAUDE_MAX_TOKENS", 1024),
		},
		Square: SquareConfig{
			AccessToken: getEnv("SQUARE_ACCESS_TOKEN", ""),
			LocationID:  getEnv("SQUARE_LOCATION_ID", ""),
			Environment: getEnv("SQUARE_ENVIRONMENT", "production"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", nil),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Slack.BotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if cfg.Claude.APIKey == "" {
		return nil, fmt.Errorf("CLAUDE_API_KEY is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSlice gets a comma-separated environment variable as a slice.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
