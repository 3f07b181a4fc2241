// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted for PRIMARY_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	AllowedOrigin      string
	StaticDir          string

	// Provider settings
	OpenAIAPIKey     string
	PerplexityAPIKey string
	AnthropicAPIKey  string
	PrimaryProvider  string

	// Conversation retention
	CleanupInterval    time.Duration
	MaxConversationAge time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Events (optional NATS fan-out)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from the environment, honoring a .env file
// in the working directory when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "3000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		StaticDir:          getEnv("STATIC_DIR", ""),

		// Providers
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		PerplexityAPIKey: getEnv("PERPLEXITY_API_KEY", ""),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		PrimaryProvider:  getEnv("PRIMARY_PROVIDER", ProviderOpenAI),

		// Retention
		CleanupInterval:    getDurationEnv("CLEANUP_INTERVAL", time.Hour),
		MaxConversationAge: getDurationEnv("MAX_CONVERSATION_AGE", 24*time.Hour),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),

		// Events
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate checks that the configuration can support a running relay.
// The process must refuse to start without at least one provider key.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" && c.PerplexityAPIKey == "" && c.AnthropicAPIKey == "" {
		return errors.New("no provider API keys configured: set OPENAI_API_KEY, PERPLEXITY_API_KEY, or ANTHROPIC_API_KEY")
	}

	switch c.PrimaryProvider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid PRIMARY_PROVIDER %q: must be %q or %q", c.PrimaryProvider, ProviderOpenAI, ProviderAnthropic)
	}

	if c.CleanupInterval <= 0 {
		return errors.New("CLEANUP_INTERVAL must be positive")
	}
	if c.MaxConversationAge <= 0 {
		return errors.New("MAX_CONVERSATION_AGE must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
