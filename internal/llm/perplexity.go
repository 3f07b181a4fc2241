package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"
	perplexityModel   = "llama-3.1-sonar-small-128k-online"
)

// PerplexityClient is the Perplexity adapter. Perplexity exposes an
// OpenAI-compatible chat-completions API, so the adapter reuses the OpenAI
// SDK pointed at the Perplexity endpoint.
type PerplexityClient struct {
	client *openai.Client
}

// NewPerplexityClient creates a new Perplexity adapter.
func NewPerplexityClient(apiKey string) (*PerplexityClient, error) {
	if apiKey == "" {
		return nil, errors.New("Perplexity API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = perplexityBaseURL

	return &PerplexityClient{client: openai.NewClientWithConfig(cfg)}, nil
}

// Name returns the provider name.
func (c *PerplexityClient) Name() string {
	return "perplexity"
}

// Complete sends a completion request.
func (c *PerplexityClient) Complete(ctx context.Context, req *CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       perplexityModel,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
