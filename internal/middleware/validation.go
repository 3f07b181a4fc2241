package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/chat-relay/internal/model"
)

// ValidateMessageContent validates inbound message content at the ingress
// boundary. The store never sees invalid input.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message is required and must be a non-empty string")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	if utf8.RuneCountInString(content) > model.MaxMessageLength {
		return errors.New("message too long, maximum 4000 characters allowed")
	}
	return nil
}

// ValidateConversationID validates a conversation id path parameter.
func ValidateConversationID(id string) error {
	if id == "" {
		return errors.New("conversation id is required")
	}
	if len(id) > 128 {
		return errors.New("conversation id exceeds maximum length")
	}
	return nil
}
