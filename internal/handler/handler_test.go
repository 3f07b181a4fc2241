package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-relay/internal/events"
	"github.com/capitalize-ai/chat-relay/internal/llm"
	"github.com/capitalize-ai/chat-relay/internal/middleware"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/internal/service"
	"github.com/capitalize-ai/chat-relay/internal/store"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// stubProvider is a canned provider adapter for handler tests.
type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (c *stubProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubProvider) Name() string { return c.name }

// newTestRouter wires the real router topology over stub providers.
func newTestRouter(primary, secondary llm.Client) (http.Handler, *store.Store) {
	log := logger.NewNop()
	st := store.New()

	dispatcher := service.NewDispatcher(primary, secondary, log)
	conversationSvc := service.NewConversationService(st, events.NewNop(), log)
	chatSvc := service.NewChatService(st, dispatcher, events.NewNop(), log)

	healthHandler := NewHealthHandler()
	conversationHandler := NewConversationHandler(conversationSvc, log)
	messageHandler := NewMessageHandler(chatSvc, log)

	r := chi.NewRouter()
	r.Use(middleware.SecurityHeaders)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Delete("/", conversationHandler.Delete)
				r.Post("/messages", messageHandler.Send)
			})
		})
	})

	return r, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createConversation(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.CreateConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ConversationID)
	return resp.ConversationID
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, Version, resp["version"])
	assert.NotEmpty(t, resp["timestamp"])
}

func TestSecurityHeaders(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/health", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCreateAndGetConversation(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/conversations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var conv model.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.Equal(t, id, conv.ID)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, conv.CreatedAt, conv.LastActivity)
}

func TestGetConversation_NotFound(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/conversations/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Conversation not found", resp["error"])
}

func TestDeleteConversation(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodDelete, "/api/conversations/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second delete reports not found; double-delete is safe.
	rec = doJSON(t, h, http.MethodDelete, "/api/conversations/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/conversations/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListConversations(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	a := createConversation(t, h)
	b := createConversation(t, h)

	rec := doJSON(t, h, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []model.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)

	ids := map[string]bool{}
	for _, s := range summaries {
		ids[s.ID] = true
	}
	assert.True(t, ids[a])
	assert.True(t, ids[b])
}

func TestSendMessage_EndToEnd(t *testing.T) {
	h, st := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ConversationID)
	assert.Equal(t, model.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "hi", resp.Message.Content)

	conv, err := st.Get(id)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hello", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "hi", conv.Messages[1].Content)
	assert.False(t, conv.LastActivity.Before(conv.Messages[1].Timestamp))
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage_TooLongLeavesStoreUntouched(t *testing.T) {
	primary := &stubProvider{name: "openai", reply: "hi"}
	h, st := newTestRouter(primary, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: strings.Repeat("a", model.MaxMessageLength+1)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	conv, err := st.Get(id)
	require.NoError(t, err)
	assert.Empty(t, conv.Messages, "rejected input must not mutate the store")
	assert.Zero(t, primary.calls)
}

func TestSendMessage_MultibyteWithinLimitAccepted(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	// 2000 characters but 6000 bytes; the bound counts characters.
	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: strings.Repeat("你", 2000)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessage_MaxLengthAccepted(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: strings.Repeat("a", model.MaxMessageLength)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessage_UnknownIDAutoCreates(t *testing.T) {
	h, st := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/my-own-id/messages",
		model.SendMessageRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	conv, err := st.Get("my-own-id")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestSendMessage_SecondaryUnconfigured(t *testing.T) {
	primary := &stubProvider{name: "openai", reply: "hi"}
	h, _ := newTestRouter(primary, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: "hello", UsePerplexity: true})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "No AI API available", resp["error"])
	assert.Zero(t, primary.calls, "no provider call may be attempted")
}

func TestSendMessage_UsePerplexitySelectsSecondary(t *testing.T) {
	primary := &stubProvider{name: "openai", reply: "from primary"}
	secondary := &stubProvider{name: "perplexity", reply: "from secondary"}
	h, _ := newTestRouter(primary, secondary)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: "hello", UsePerplexity: true})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "from secondary", resp.Message.Content)
	assert.Zero(t, primary.calls)
}

func TestSendMessage_ProviderError(t *testing.T) {
	h, st := newTestRouter(&stubProvider{name: "openai", err: errors.New("upstream 500")}, nil)

	id := createConversation(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/conversations/"+id+"/messages",
		model.SendMessageRequest{Message: "hello"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to process message", resp["error"])
	assert.NotContains(t, rec.Body.String(), "upstream 500", "provider internals must not leak")

	// The user turn survives a provider failure.
	conv, err := st.Get(id)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
}

func TestRateLimit_SecondRequestRejected(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RateLimit(1, time.Minute))
	r.Get("/api/health", NewHealthHandler().Health)

	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "Too many requests")
}

func TestSendMessage_InvalidBody(t *testing.T) {
	h, _ := newTestRouter(&stubProvider{name: "openai", reply: "hi"}, nil)

	id := createConversation(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+id+"/messages",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
