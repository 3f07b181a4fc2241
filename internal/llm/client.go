// Package llm provides chat-completion adapters for external model providers.
package llm

import (
	"context"
)

// ChatMessage is one transcript entry in provider wire format.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest carries a transcript and generation parameters.
type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// Client is the adapter contract every provider implements. Complete is a
// single synchronous call; retry and timeout policy belong to the caller's
// context and the underlying SDK.
type Client interface {
	// Complete sends the transcript and returns the generated reply text.
	Complete(ctx context.Context, req *CompletionRequest) (string, error)

	// Name returns the provider name for logs and metrics.
	Name() string
}
