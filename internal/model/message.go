package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged utterance in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MaxMessageLength is the ingress bound on message content, in characters.
const MaxMessageLength = 4000

// SendMessageRequest is the request body for POST /api/conversations/{id}/messages.
type SendMessageRequest struct {
	Message       string `json:"message"`
	UsePerplexity bool   `json:"usePerplexity"`
}

// SendMessageResponse carries the generated assistant turn.
type SendMessageResponse struct {
	Message        Message `json:"message"`
	ConversationID string  `json:"conversationId"`
}
