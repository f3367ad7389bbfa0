// Package config provides configuration management for pland.
// It loads settings from environment variables with the PLAND_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the pland application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Oracle   OracleConfig
	Telegram TelegramConfig
	Search   SearchConfig
	Briefing BriefingConfig
	Memory   MemoryConfig
	Intent   IntentConfig
	Enrich   EnrichConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port          int    // Server port (default: 8080)
	Host          string // Server host (default: 127.0.0.1)
	WebhookSecret string // Telegram webhook secret token; empty disables the check
}

// StorageConfig contains event store configuration.
type StorageConfig struct {
	Engine      string // Storage engine: sqlite, postgres (default: sqlite)
	DataPath    string // Path to data directory for sqlite (default: ./data)
	PostgresDSN string // Postgres connection string when Engine is postgres
}

// OracleConfig contains language oracle provider configuration.
type OracleConfig struct {
	Provider     string        // Oracle provider: gemini, openai (default: gemini)
	GeminiAPIKey string        // Gemini API key
	GeminiModel  string        // Gemini model name (default: gemini-2.5-flash-lite)
	GeminiURL    string        // Gemini API base URL
	OpenAIAPIKey string        // OpenAI API key
	OpenAIModel  string        // OpenAI model name (default: gpt-4o-mini)
	OpenAIURL    string        // OpenAI API base URL
	Timeout      time.Duration // Per-call timeout; kept short so the loading→final message pattern stays responsive
}

// TelegramConfig contains messaging gateway configuration.
type TelegramConfig struct {
	BotToken          string  // Telegram bot token (required)
	APIURL            string  // Telegram API base URL (default: https://api.telegram.org)
	MessagesPerSecond float64 // Outbound send rate (default: 25, under Telegram's global cap)
}

// SearchConfig contains web search API configuration used by enrichment
// and topic research. An empty APIKey disables both.
type SearchConfig struct {
	APIKey  string
	BaseURL string // default: https://api.tavily.com
	Timeout time.Duration
}

// BriefingConfig contains nightly briefing configuration.
type BriefingConfig struct {
	Enabled  bool   // Enable the nightly briefing job (default: true)
	Hour     int    // Local hour to send the briefing, 0-23 (default: 21)
	Timezone string // IANA timezone name (default: Asia/Singapore)
}

// MemoryConfig contains short-term chat memory configuration.
type MemoryConfig struct {
	MaxRooms int // Maximum tracked rooms before LRU eviction (default: 4096)
}

// IntentConfig contains intent gate configuration.
type IntentConfig struct {
	VocabularyPath string // Optional YAML file overriding the built-in vocabulary
}

// EnrichConfig contains enrichment worker pool configuration.
type EnrichConfig struct {
	Workers   int // Number of enrichment workers (default: 2)
	QueueSize int // Enrichment queue capacity (default: 64)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the PLAND_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:          getEnvInt("PLAND_PORT", 8080),
			Host:          getEnv("PLAND_HOST", "127.0.0.1"),
			WebhookSecret: getEnv("PLAND_WEBHOOK_SECRET", ""),
		},
		Storage: StorageConfig{
			Engine:      getEnv("PLAND_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("PLAND_DATA_PATH", "./data"),
			PostgresDSN: getEnv("PLAND_POSTGRES_DSN", ""),
		},
		Oracle: OracleConfig{
			Provider:     getEnv("PLAND_ORACLE_PROVIDER", "gemini"),
			GeminiAPIKey: getEnv("PLAND_GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("PLAND_GEMINI_MODEL", "gemini-2.5-flash-lite"),
			GeminiURL:    getEnv("PLAND_GEMINI_URL", "https://generativelanguage.googleapis.com"),
			OpenAIAPIKey: getEnv("PLAND_OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("PLAND_OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIURL:    getEnv("PLAND_OPENAI_URL", "https://api.openai.com"),
			Timeout:      getEnvDuration("PLAND_ORACLE_TIMEOUT", 8*time.Second),
		},
		Telegram: TelegramConfig{
			BotToken:          getEnv("PLAND_TELEGRAM_BOT_TOKEN", ""),
			APIURL:            getEnv("PLAND_TELEGRAM_API_URL", "https://api.telegram.org"),
			MessagesPerSecond: getEnvFloat("PLAND_TELEGRAM_RATE", 25.0),
		},
		Search: SearchConfig{
			APIKey:  getEnv("PLAND_SEARCH_API_KEY", ""),
			BaseURL: getEnv("PLAND_SEARCH_URL", "https://api.tavily.com"),
			Timeout: getEnvDuration("PLAND_SEARCH_TIMEOUT", 10*time.Second),
		},
		Briefing: BriefingConfig{
			Enabled:  getEnvBool("PLAND_BRIEFING_ENABLED", true),
			Hour:     getEnvInt("PLAND_BRIEFING_HOUR", 21),
			Timezone: getEnv("PLAND_TIMEZONE", "Asia/Singapore"),
		},
		Memory: MemoryConfig{
			MaxRooms: getEnvInt("PLAND_MEMORY_MAX_ROOMS", 4096),
		},
		Intent: IntentConfig{
			VocabularyPath: getEnv("PLAND_INTENT_VOCABULARY", ""),
		},
		Enrich: EnrichConfig{
			Workers:   getEnvInt("PLAND_ENRICH_WORKERS", 2),
			QueueSize: getEnvInt("PLAND_ENRICH_QUEUE_SIZE", 64),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent enough to start the
// process. It is called once at bootstrap.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return errors.New("config: PLAND_TELEGRAM_BOT_TOKEN is required")
	}
	switch c.Storage.Engine {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("config: PLAND_POSTGRES_DSN is required for the postgres engine")
		}
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	switch c.Oracle.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Briefing.Hour < 0 || c.Briefing.Hour > 23 {
		return fmt.Errorf("config: briefing hour %d out of range 0-23", c.Briefing.Hour)
	}
	if _, err := time.LoadLocation(c.Briefing.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Briefing.Timezone, err)
	}
	if c.Memory.MaxRooms <= 0 {
		return fmt.Errorf("config: memory max rooms must be positive, got %d", c.Memory.MaxRooms)
	}
	if c.Enrich.Workers < 0 || c.Enrich.QueueSize < 0 {
		return errors.New("config: enrichment workers and queue size must be non-negative")
	}
	return nil
}

// Location returns the configured deployment timezone. Validate catches a
// bad timezone name at startup; this falls back to the process-local zone
// so callers never receive nil.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Briefing.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" as true and "false", "0", "no"
// as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "5s") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
