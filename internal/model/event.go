package model

import (
	"time"
)

// EventType labels operational events published on the event bus.
type EventType string

const (
	EventConversationCreated EventType = "conversation_created"
	EventConversationDeleted EventType = "conversation_deleted"
	EventConversationEvicted EventType = "conversation_evicted"
	EventMessageAppended     EventType = "message_appended"
)

// Event is an operational notification about a conversation. Events are
// observability fan-out only; the store never depends on them.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
