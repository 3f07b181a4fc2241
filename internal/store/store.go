// Package store provides the in-memory conversation registry.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/pkg/metrics"
)

// ErrNotFound is returned when a conversation id is absent from the store.
var ErrNotFound = errors.New("conversation not found")

// Store is a thread-safe registry of conversations keyed by id. It is the
// only shared mutable state in the process; a single RWMutex guards the
// whole map, which is plenty at the expected scale.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*model.Conversation),
		now:           time.Now,
	}
}

// Create inserts an empty conversation under a freshly generated id and
// returns the id. UUIDv7 generation is treated as collision-free.
func (s *Store) Create() string {
	id := uuid.Must(uuid.NewV7()).String()
	now := s.now()

	s.mu.Lock()
	s.conversations[id] = &model.Conversation{
		ID:           id,
		Messages:     []model.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}
	size := len(s.conversations)
	s.mu.Unlock()

	metrics.ConversationsTotal.Inc()
	metrics.ConversationsActive.Set(float64(size))

	return id
}

// CreateWithID inserts an empty conversation under the caller-supplied id.
// It reports whether a new conversation was created; an existing id is left
// untouched.
func (s *Store) CreateWithID(id string) bool {
	now := s.now()

	s.mu.Lock()
	if _, exists := s.conversations[id]; exists {
		s.mu.Unlock()
		return false
	}
	s.conversations[id] = &model.Conversation{
		ID:           id,
		Messages:     []model.Message{},
		CreatedAt:    now,
		LastActivity: now,
	}
	size := len(s.conversations)
	s.mu.Unlock()

	metrics.ConversationsTotal.Inc()
	metrics.ConversationsActive.Set(float64(size))

	return true
}

// Get returns a snapshot of the conversation. The returned value shares no
// mutable state with the store, so callers cannot corrupt the transcript.
func (s *Store) Get(id string) (model.Conversation, error) {
	s.mu.RLock()
	conv, exists := s.conversations[id]
	if !exists {
		s.mu.RUnlock()
		return model.Conversation{}, ErrNotFound
	}
	snapshot := snapshotOf(conv)
	s.mu.RUnlock()

	return snapshot, nil
}

// AppendMessage appends a message with the current timestamp and refreshes
// last activity. It returns the created message.
func (s *Store) AppendMessage(id string, role model.Role, content string) (model.Message, error) {
	msg := model.Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	conv, exists := s.conversations[id]
	if !exists {
		s.mu.Unlock()
		return model.Message{}, ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = msg.Timestamp
	s.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()

	return msg, nil
}

// Delete removes the conversation and reports whether it existed. Deleting
// an absent id is a safe no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, exists := s.conversations[id]
	if exists {
		delete(s.conversations, id)
	}
	size := len(s.conversations)
	s.mu.Unlock()

	if exists {
		metrics.ConversationsActive.Set(float64(size))
	}

	return exists
}

// EvictIfIdle deletes the conversation only if its last activity is still
// strictly before the cutoff. The re-check under the write lock means a
// conversation refreshed after the sweeper's scan is never evicted.
func (s *Store) EvictIfIdle(id string, cutoff time.Time) bool {
	s.mu.Lock()
	conv, exists := s.conversations[id]
	if !exists || !conv.LastActivity.Before(cutoff) {
		s.mu.Unlock()
		return false
	}
	delete(s.conversations, id)
	size := len(s.conversations)
	s.mu.Unlock()

	metrics.ConversationsActive.Set(float64(size))

	return true
}

// ListSummaries returns one summary per conversation, taken under a single
// read lock so the enumeration never reflects a half-applied mutation.
// Order is unspecified.
func (s *Store) ListSummaries() []model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.Summary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		summaries = append(summaries, model.Summary{
			ID:           conv.ID,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			LastActivity: conv.LastActivity,
		})
	}
	return summaries
}

func snapshotOf(conv *model.Conversation) model.Conversation {
	snapshot := *conv
	snapshot.Messages = make([]model.Message, len(conv.Messages))
	copy(snapshot.Messages, conv.Messages)
	return snapshot
}
