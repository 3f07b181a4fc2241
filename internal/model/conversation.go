// Package model defines data structures for the chat relay.
package model

import (
	"time"
)

// Conversation is a retained transcript identified by an opaque id.
type Conversation struct {
	ID           string    `json:"conversationId"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// Summary is the admin-listing view of a conversation.
type Summary struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// CreateConversationResponse is returned by POST /api/conversations.
type CreateConversationResponse struct {
	ConversationID string `json:"conversationId"`
}

// DeleteConversationResponse confirms a deletion.
type DeleteConversationResponse struct {
	Message string `json:"message"`
}
