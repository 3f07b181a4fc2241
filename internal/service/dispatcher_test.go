package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chat-relay/internal/llm"
	"github.com/capitalize-ai/chat-relay/internal/model"
	"github.com/capitalize-ai/chat-relay/pkg/logger"
)

// stubClient is a provider adapter that records what it was asked and
// returns a canned reply or error.
type stubClient struct {
	name    string
	reply   string
	err     error
	calls   int
	lastReq *llm.CompletionRequest
}

func (c *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	c.calls++
	c.lastReq = req
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *stubClient) Name() string {
	return c.name
}

func transcriptOf(n int) []model.Message {
	msgs := make([]model.Message, n)
	for i := range msgs {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		msgs[i] = model.Message{
			Role:      role,
			Content:   fmt.Sprintf("message-%d", i),
			Timestamp: time.Now(),
		}
	}
	return msgs
}

func TestGenerate_TruncatesToLast20(t *testing.T) {
	primary := &stubClient{name: "openai", reply: "ok"}
	d := NewDispatcher(primary, nil, logger.NewNop())

	_, err := d.Generate(context.Background(), transcriptOf(25), ProviderPrimary)
	require.NoError(t, err)

	require.NotNil(t, primary.lastReq)
	require.Len(t, primary.lastReq.Messages, 20)
	assert.Equal(t, "message-5", primary.lastReq.Messages[0].Content)
	assert.Equal(t, "message-24", primary.lastReq.Messages[19].Content)
}

func TestGenerate_ShortTranscriptSentWhole(t *testing.T) {
	primary := &stubClient{name: "openai", reply: "ok"}
	d := NewDispatcher(primary, nil, logger.NewNop())

	_, err := d.Generate(context.Background(), transcriptOf(3), ProviderPrimary)
	require.NoError(t, err)
	assert.Len(t, primary.lastReq.Messages, 3)
}

func TestGenerate_FixedGenerationParameters(t *testing.T) {
	primary := &stubClient{name: "openai", reply: "ok"}
	d := NewDispatcher(primary, nil, logger.NewNop())

	_, err := d.Generate(context.Background(), transcriptOf(1), ProviderPrimary)
	require.NoError(t, err)

	assert.Equal(t, float32(0.7), primary.lastReq.Temperature)
	assert.Equal(t, 1500, primary.lastReq.MaxTokens)
}

func TestGenerate_SecondarySelectsSecondaryAdapter(t *testing.T) {
	primary := &stubClient{name: "openai", reply: "from primary"}
	secondary := &stubClient{name: "perplexity", reply: "from secondary"}
	d := NewDispatcher(primary, secondary, logger.NewNop())

	text, err := d.Generate(context.Background(), transcriptOf(1), ProviderSecondary)
	require.NoError(t, err)
	assert.Equal(t, "from secondary", text)
	assert.Zero(t, primary.calls)
}

func TestGenerate_UnconfiguredProviderFailsWithoutCall(t *testing.T) {
	primary := &stubClient{name: "openai", reply: "ok"}
	d := NewDispatcher(primary, nil, logger.NewNop())

	_, err := d.Generate(context.Background(), transcriptOf(1), ProviderSecondary)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Zero(t, primary.calls, "no adapter call may be attempted")
}

func TestGenerate_WrapsAdapterFailure(t *testing.T) {
	cause := errors.New("connection reset")
	primary := &stubClient{name: "openai", err: cause}
	d := NewDispatcher(primary, nil, logger.NewNop())

	_, err := d.Generate(context.Background(), transcriptOf(1), ProviderPrimary)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "openai", provErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, primary.calls, "failures are not retried")
}
