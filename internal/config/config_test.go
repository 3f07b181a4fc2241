package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PERPLEXITY_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("PORT", "")
	t.Setenv("CLEANUP_INTERVAL", "")
	t.Setenv("MAX_CONVERSATION_AGE", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.MaxConversationAge)
	assert.Equal(t, ProviderOpenAI, cfg.PrimaryProvider)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
}

func TestLoad_Overrides(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("PORT", "8081")
	t.Setenv("CLEANUP_INTERVAL", "10m")
	t.Setenv("MAX_CONVERSATION_AGE", "1h")
	t.Setenv("PRIMARY_PROVIDER", "anthropic")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "8081", cfg.ServerPort)
	assert.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, time.Hour, cfg.MaxConversationAge)
	assert.Equal(t, ProviderAnthropic, cfg.PrimaryProvider)
	assert.True(t, cfg.TracingEnabled)
}

func TestValidate_RequiresProviderKey(t *testing.T) {
	clearProviderKeys(t)
	cfg := Load()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider API keys")
}

func TestValidate_AnyKeySuffices(t *testing.T) {
	clearProviderKeys(t)

	for _, key := range []string{"OPENAI_API_KEY", "PERPLEXITY_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Run(key, func(t *testing.T) {
			clearProviderKeys(t)
			t.Setenv(key, "sk-test")

			cfg := Load()
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestValidate_RejectsUnknownPrimaryProvider(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PRIMARY_PROVIDER", "perplexity")

	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRIMARY_PROVIDER")
}

func TestValidate_RejectsNonPositiveRetention(t *testing.T) {
	clearProviderKeys(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLEANUP_INTERVAL", "-1h")

	cfg := Load()
	require.Error(t, cfg.Validate())
}
