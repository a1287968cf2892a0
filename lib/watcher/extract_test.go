package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error

	calls    int
	lastUser string
}

func (fc *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.calls++
	for _, msg := range req.Messages {
		if msg.Role == openai.ChatMessageRoleUser {
			fc.lastUser = msg.Content
		}
	}

	if fc.err != nil {
		return openai.ChatCompletionResponse{}, fc.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: fc.reply}},
		},
	}, nil
}

func TestExtractWithoutKeyShortCircuits(t *testing.T) {
	e := NewExtractorWithClient(zap.NewNop(), nil)

	_, err := e.Extract(context.Background(), "some page text")

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestExtractParsesPrice(t *testing.T) {
	fc := &fakeChat{reply: `{"price": 1299, "currency": "BRL"}`}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	result, err := e.Extract(context.Background(), "R$ 1.299,00 no pix")

	require.NoError(t, err)
	assert.Equal(t, 1299.0, result.Price)
	assert.Equal(t, "BRL", result.Currency)
	assert.Equal(t, 1, fc.calls)
	assert.Contains(t, fc.lastUser, "1.299,00")
}

func TestExtractDefaultsCurrencyToUSD(t *testing.T) {
	fc := &fakeChat{reply: `{"price": 499.99}`}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	result, err := e.Extract(context.Background(), "$499.99")

	require.NoError(t, err)
	assert.Equal(t, "USD", result.Currency)
}

func TestExtractNotFoundMarker(t *testing.T) {
	fc := &fakeChat{reply: `{"error": "not found"}`}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	_, err := e.Extract(context.Background(), "a page without prices")

	require.ErrorIs(t, err, ErrPriceNotFound)
}

func TestExtractUnparseableReply(t *testing.T) {
	fc := &fakeChat{reply: "Sure! The price is $10."}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	_, err := e.Extract(context.Background(), "whatever")

	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
}

func TestExtractReplyWithoutPriceOrMarker(t *testing.T) {
	fc := &fakeChat{reply: `{"confidence": 0.2}`}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	_, err := e.Extract(context.Background(), "whatever")

	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
}

func TestExtractBackendUnavailable(t *testing.T) {
	fc := &fakeChat{err: errors.New("upstream timeout")}
	e := NewExtractorWithClient(zap.NewNop(), fc)

	_, err := e.Extract(context.Background(), "whatever")

	var ee *ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, err.Error(), "upstream timeout")
}
