// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chat-relay/internal/middleware"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/internal/service"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.service.Create(r.Context())

	writeJSON(w, http.StatusOK, model.CreateConversationResponse{
		ConversationID: id,
	})
}

// Get handles GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.service.Delete(r.Context(), id) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteConversationResponse{
		Message: "Conversation deleted successfully",
	})
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListSummaries(r.Context()))
}
