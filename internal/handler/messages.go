package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/middleware"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/internal/service"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// MessageHandler handles the send-message endpoint.
type MessageHandler struct {
	chat   *service.ChatService
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(chat *service.ChatService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		chat:   chat,
		logger: log,
	}
}

// Send handles POST /api/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider := service.ProviderPrimary
	if req.UsePerplexity {
		provider = service.ProviderSecondary
	}

	reply, err := h.chat.Send(ctx, conversationID, strings.TrimSpace(req.Message), provider)
	if err != nil {
		h.handleSendError(w, conversationID, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SendMessageResponse{
		Message:        reply,
		ConversationID: conversationID,
	})
}

func (h *MessageHandler) handleSendError(w http.ResponseWriter, conversationID string, err error) {
	var provErr *service.ProviderError

	switch {
	case errors.Is(err, service.ErrProviderUnavailable):
		writeError(w, http.StatusServiceUnavailable, "No AI API available")
	case errors.As(err, &provErr):
		h.logger.Error("message processing failed",
			zap.String("conversation_id", conversationID),
			zap.String("provider", provErr.Provider),
			zap.Error(err),
		)
		writeErrorDetails(w, http.StatusInternalServerError,
			"Failed to process message", "Failed to generate AI response")
	default:
		h.logger.Error("message processing failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Failed to process message")
	}
}
