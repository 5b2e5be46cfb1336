// Package openai implements a provider.Completer for OpenAI-compatible
// Chat Completions APIs (OpenAI, Groq, and other compatible hosts).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/askbase/pkg/llm"
)

const (
	// DefaultBaseURL is the OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultMaxRetries is used by the completion factory.
	DefaultMaxRetries = 2
)

// Config holds configuration for the OpenAI client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty. Point it at
	// https://api.groq.com/openai/v1 for Groq.
	BaseURL string

	// APIKey is required.
	APIKey string

	// MaxRetries is the number of SDK-level retries on 429 and 5xx.
	MaxRetries int
}

// Client wraps the openai-go chat completions service.
type Client struct {
	client openai.Client
	logger *slog.Logger
}

// NewClient creates a new OpenAI-compatible completion client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		logger: logger,
	}, nil
}

func (c *Client) Name() string {
	return "openai"
}

// Complete runs a non-streaming chat completion.
func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.GetText()))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.GetText()))
		default:
			messages = append(messages, openai.UserMessage(msg.GetText()))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", llm.ErrCompletion, err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", llm.ErrCompletion)
	}

	choice := completion.Choices[0]
	result := &llm.ChatResponse{
		Model:      completion.Model,
		CreatedAt:  time.Unix(completion.Created, 0),
		Message:    llm.NewTextMessage("assistant", choice.Message.Content),
		Done:       true,
		StopReason: string(choice.FinishReason),
		Usage: &llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	if c.logger != nil {
		c.logger.Debug("openai completion",
			"model", result.Model,
			"prompt_tokens", result.Usage.PromptTokens,
			"completion_tokens", result.Usage.CompletionTokens,
		)
	}

	return result, nil
}
