package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lgimportados/pricewatch/config"
	"github.com/lgimportados/pricewatch/lib/models"
)

const extractionInstruction = "You are a data extractor. Analyze the provided page text and find the " +
	"CURRENT price of the page's main product. Respond ONLY with a JSON object: " +
	`{"price": number, "currency": "USD" | "BRL"}. ` +
	`If no price can be found, respond {"error": "not found"}. ` +
	"Ignore installment and financing offers; pick the main cash price."

// ChatCompleter is the slice of the OpenAI client the extractor needs.
// Satisfied by *openai.Client; tests substitute a canned implementation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor reads a price out of sanitized page text by asking a hosted
// language model for a JSON-constrained answer. There is a single backend;
// its unavailability is an ordinary ExtractError, not retried here.
type Extractor struct {
	log    *zap.Logger
	client ChatCompleter
}

func NewExtractor(cfg *config.Config, log *zap.Logger) *Extractor {
	var client ChatCompleter
	if cfg.OpenAIAPIKey != "" {
		client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return &Extractor{log, client}
}

// NewExtractorWithClient wires a custom backend client (useful for testing).
func NewExtractorWithClient(log *zap.Logger, client ChatCompleter) *Extractor {
	return &Extractor{log, client}
}

func (e *Extractor) Extract(ctx context.Context, cleanText string) (*CheckResult, error) {
	if e.client == nil {
		return nil, &ConfigError{Name: "OPENAI_API_KEY"}
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionInstruction},
			{Role: openai.ChatMessageRoleUser, Content: cleanText},
		},
	})
	if err != nil {
		return nil, &ExtractError{cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &ExtractError{cause: errors.New("backend returned no choices")}
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}

func parseExtraction(content string) (*CheckResult, error) {
	var payload struct {
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
		Error    string  `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, &ExtractError{cause: fmt.Errorf("unparseable backend reply: %w", err)}
	}

	switch {
	case payload.Price > 0:
		currency := payload.Currency
		if currency != models.CurrencyBRL {
			currency = models.CurrencyUSD
		}
		return &CheckResult{Price: payload.Price, Currency: currency}, nil

	case payload.Error != "":
		return nil, ErrPriceNotFound

	default:
		return nil, &ExtractError{cause: errors.New("backend reply carries neither price nor error marker")}
	}
}
