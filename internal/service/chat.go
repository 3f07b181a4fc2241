package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-relay/internal/events"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/internal/store"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// ChatService orchestrates one chat turn: append the user message, obtain a
// reply from the selected provider, append the assistant message.
type ChatService struct {
	store      *store.Store
	dispatcher *Dispatcher
	publisher  events.Publisher
	logger     *logger.Logger
}

// NewChatService creates a new chat service.
func NewChatService(st *store.Store, dispatcher *Dispatcher, publisher events.Publisher, log *logger.Logger) *ChatService {
	return &ChatService{
		store:      st,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     log,
	}
}

// Send appends the user turn to the conversation, generates a reply, and
// appends the assistant turn. A send to an unknown id creates the
// conversation under exactly that id, so both turns land in the same
// transcript.
//
// The provider call is made without holding any store lock; if the
// conversation is deleted while the provider is generating, the assistant
// append is a logged no-op and the reply is still returned to the caller.
func (s *ChatService) Send(ctx context.Context, conversationID, content string, provider Provider) (model.Message, error) {
	if s.store.CreateWithID(conversationID) {
		s.logger.Info("conversation auto-created for message",
			zap.String("conversation_id", conversationID),
		)
		s.publish(ctx, model.Event{
			Type:           model.EventConversationCreated,
			ConversationID: conversationID,
		})
	}

	userMsg, err := s.store.AppendMessage(conversationID, model.RoleUser, content)
	if err != nil {
		return model.Message{}, err
	}
	s.publish(ctx, model.Event{
		Type:           model.EventMessageAppended,
		ConversationID: conversationID,
		Role:           model.RoleUser,
	})

	// Snapshot the transcript for the provider call. If the conversation
	// vanished between append and read, the lone user turn still goes out.
	transcript := []model.Message{userMsg}
	if conv, err := s.store.Get(conversationID); err == nil {
		transcript = conv.Messages
	}

	reply, err := s.dispatcher.Generate(ctx, transcript, provider)
	if err != nil {
		return model.Message{}, err
	}

	assistantMsg, err := s.store.AppendMessage(conversationID, model.RoleAssistant, reply)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return model.Message{}, err
		}
		// Deleted (or evicted) while the provider was generating. The
		// store is untouched; deliver the reply anyway.
		s.logger.Warn("conversation gone before assistant append, discarding from store",
			zap.String("conversation_id", conversationID),
		)
		return model.Message{
			Role:      model.RoleAssistant,
			Content:   reply,
			Timestamp: time.Now(),
		}, nil
	}

	s.publish(ctx, model.Event{
		Type:           model.EventMessageAppended,
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
	})

	return assistantMsg, nil
}

func (s *ChatService) publish(ctx context.Context, event model.Event) {
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
