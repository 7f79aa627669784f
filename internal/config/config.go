package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/finpulse/finpulse-bot/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Feed API configuration
	FeedBaseURL        string
	FeedAPIKey         string
	FeedMinIntervalSec int
	LookbackHours      int

	// Cache configuration
	CacheBackend string // "file" or "redis"
	CacheDir     string
	RedisURL     string

	// Analysis configuration
	LexiconPath       string
	DefaultCategory   string
	Accounts          []models.Account
	CategoryOverrides map[string]string

	// Schedule configuration (cron expressions with seconds field)
	CollectSchedule string
	AnalyzeSchedule string

	// LLM narrative collaborator
	ClaudeAPIKey string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Azure Storage snapshot archive
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		FeedBaseURL:        getEnv("FEED_BASE_URL", "https://api.twitter.com"),
		FeedAPIKey:         getEnv("FEED_API_KEY", ""),
		FeedMinIntervalSec: getIntEnv("FEED_MIN_INTERVAL_SECONDS", 60),
		LookbackHours:      getIntEnv("LOOKBACK_HOURS", 24),

		CacheBackend: getEnv("CACHE_BACKEND", "file"),
		CacheDir:     getEnv("CACHE_DIR", "data/cache"),
		RedisURL:     getEnv("REDIS_URL", ""),

		LexiconPath:       getEnv("LEXICON_PATH", ""),
		DefaultCategory:   getEnv("DEFAULT_CATEGORY", "general"),
		Accounts:          parseAccounts(getSliceEnv("ACCOUNTS", defaultAccounts)),
		CategoryOverrides: parseOverrides(getSliceEnv("CATEGORY_OVERRIDES", nil)),

		CollectSchedule: getEnv("COLLECT_SCHEDULE", "0 0 */4 * * *"),
		AnalyzeSchedule: getEnv("ANALYZE_SCHEDULE", "0 15 */4 * * *"),

		ClaudeAPIKey: getEnv("CLAUDE_API_KEY", ""),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

var defaultAccounts = []string{
	"federalreserve:high:economy",
	"business:medium:markets",
	"coindesk:medium:crypto",
}

func (c *Config) validate() error {
	if c.FeedAPIKey == "" {
		return fmt.Errorf("FEED_API_KEY is required")
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("ACCOUNTS must define at least one tracked handle")
	}

	if c.CacheBackend != "file" && c.CacheBackend != "redis" {
		return fmt.Errorf("CACHE_BACKEND must be 'file' or 'redis'")
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is 'redis'")
	}

	if c.FeedMinIntervalSec < 0 {
		return fmt.Errorf("FEED_MIN_INTERVAL_SECONDS must not be negative")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// parseAccounts parses "handle:tier:category" entries. Tier and category are
// optional; missing pieces default to medium priority and no category hint.
func parseAccounts(entries []string) []models.Account {
	var accounts []models.Account
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if parts[0] == "" {
			continue
		}

		account := models.Account{Handle: parts[0], PriorityTier: "medium"}
		if len(parts) > 1 && parts[1] != "" {
			account.PriorityTier = parts[1]
		}
		if len(parts) > 2 && parts[2] != "" {
			account.DefaultCategory = parts[2]
		}

		accounts = append(accounts, account)
	}
	return accounts
}

// parseOverrides parses "handle=category" entries.
func parseOverrides(entries []string) map[string]string {
	overrides := make(map[string]string)
	for _, entry := range entries {
		handle, category, found := strings.Cut(strings.TrimSpace(entry), "=")
		if !found || handle == "" || category == "" {
			continue
		}
		overrides[handle] = category
	}
	return overrides
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
