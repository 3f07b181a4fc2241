package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/events"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/internal/store"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// ConversationService handles conversation lifecycle operations and emits
// the corresponding operational events.
type ConversationService struct {
	store     *store.Store
	publisher events.Publisher
	logger    *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st *store.Store, publisher events.Publisher, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:     st,
		publisher: publisher,
		logger:    log,
	}
}

// Create allocates a fresh conversation and returns its id.
func (s *ConversationService) Create(ctx context.Context) string {
	id := s.store.Create()

	s.logger.Info("conversation created", zap.String("conversation_id", id))
	s.publish(ctx, model.Event{
		Type:           model.EventConversationCreated,
		ConversationID: id,
	})

	return id
}

// Get returns a snapshot of the conversation.
func (s *ConversationService) Get(ctx context.Context, id string) (model.Conversation, error) {
	return s.store.Get(id)
}

// Delete removes the conversation and reports whether it existed.
func (s *ConversationService) Delete(ctx context.Context, id string) bool {
	existed := s.store.Delete(id)
	if !existed {
		return false
	}

	s.logger.Info("conversation deleted", zap.String("conversation_id", id))
	s.publish(ctx, model.Event{
		Type:           model.EventConversationDeleted,
		ConversationID: id,
	})

	return true
}

// ListSummaries returns the admin listing of all conversations.
func (s *ConversationService) ListSummaries(ctx context.Context) []model.Summary {
	return s.store.ListSummaries()
}

func (s *ConversationService) publish(ctx context.Context, event model.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", string(event.Type)),
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err),
		)
	}
}
