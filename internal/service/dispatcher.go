// Package service provides business logic for the chat relay.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/llm"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
	"github.com/capitalize-ai/chat-relay/pkg/metrics"
)

// Generation parameters are fixed by design, not caller-configurable.
const (
	contextWindowMessages = 20
	generationTemperature = 0.7
	generationMaxTokens   = 1500
)

// Provider selects which configured adapter handles a generation request.
type Provider string

const (
	// ProviderPrimary is the default provider (OpenAI or Anthropic,
	// depending on configuration).
	ProviderPrimary Provider = "primary"
	// ProviderSecondary is the Perplexity provider.
	ProviderSecondary Provider = "secondary"
)

// ErrProviderUnavailable is returned when the requested provider has no
// configured adapter. No network call is attempted.
var ErrProviderUnavailable = errors.New("requested provider is not configured")

// ProviderError wraps a transport or parse failure from a provider adapter.
// Callers see one opaque error kind; the cause is retained for logging.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s request failed: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Dispatcher routes generation requests to the configured provider
// adapters. A nil adapter means that provider is unconfigured.
type Dispatcher struct {
	primary   llm.Client
	secondary llm.Client
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher over the configured adapters.
func NewDispatcher(primary, secondary llm.Client, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		primary:   primary,
		secondary: secondary,
		logger:    log,
	}
}

// Generate sends the transcript to the selected provider and returns the
// generated reply. Only the most recent messages are submitted; older
// context is dropped deliberately to bound cost and latency. The call is
// synchronous and never retried.
func (d *Dispatcher) Generate(ctx context.Context, transcript []model.Message, provider Provider) (string, error) {
	var client llm.Client
	switch provider {
	case ProviderSecondary:
		client = d.secondary
	default:
		client = d.primary
	}
	if client == nil {
		return "", ErrProviderUnavailable
	}

	window := transcript
	if len(window) > contextWindowMessages {
		window = window[len(window)-contextWindowMessages:]
	}

	messages := make([]llm.ChatMessage, len(window))
	for i, msg := range window {
		messages[i] = llm.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	start := time.Now()
	text, err := client.Complete(ctx, &llm.CompletionRequest{
		Messages:    messages,
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.RecordProviderRequest(client.Name(), "error", duration.Seconds())
		d.logger.Error("provider request failed",
			zap.String("provider", client.Name()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", &ProviderError{Provider: client.Name(), Cause: err}
	}

	metrics.RecordProviderRequest(client.Name(), "success", duration.Seconds())

	return text, nil
}
