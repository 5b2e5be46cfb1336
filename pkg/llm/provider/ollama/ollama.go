// Package ollama implements a provider.Completer for Ollama's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/askbase/pkg/llm"
)

// DefaultBaseURL is the default Ollama API URL.
const DefaultBaseURL = "http://localhost:11434"

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// KeepAlive controls how long the model stays loaded (e.g. "5m").
	KeepAlive string
}

// Client calls Ollama's /api/chat endpoint with streaming disabled.
type Client struct {
	baseURL    string
	keepAlive  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Ollama completion client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:   baseURL,
		keepAlive: cfg.KeepAlive,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
		logger: logger,
	}, nil
}

func (c *Client) Name() string {
	return "ollama"
}

// Complete sends req to /api/chat and waits for the full response.
func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := ollamaRequest{
		Model:     req.Model,
		Stream:    false,
		KeepAlive: c.keepAlive,
	}

	if req.System != "" {
		body.Messages = append(body.Messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: msg.Role, Content: msg.GetText()})
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil || len(req.Stop) > 0 {
		body.Options = &ollamaOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			Stop:        req.Stop,
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llm.ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llm.ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", llm.ErrCompletion, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", llm.ErrCompletion, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrCompletion, resp.StatusCode, string(payload))
	}

	result, err := ParseResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", llm.ErrCompletion, err)
	}

	if c.logger != nil && result.Usage != nil {
		c.logger.Debug("ollama completion",
			"model", result.Model,
			"prompt_tokens", result.Usage.PromptTokens,
			"completion_tokens", result.Usage.CompletionTokens,
			"total_duration", time.Duration(result.Usage.TotalDurationNs),
		)
	}

	return result, nil
}

// ParseResponse converts an /api/chat response into the internal format.
func ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}

	// Map Ollama metrics to common Usage format
	var usage *llm.Usage
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 || resp.TotalDuration > 0 {
		usage = &llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			TotalDurationNs:  resp.TotalDuration,
			PromptDurationNs: resp.PromptEvalDuration,
		}
	}

	stopReason := resp.DoneReason
	if stopReason == "" && resp.Done {
		stopReason = "stop"
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    resp.Message.Role,
			Content: []llm.ContentBlock{{Type: "text", Text: resp.Message.Content}},
		},
		Done:        resp.Done,
		StopReason:  stopReason,
		Usage:       usage,
		CreatedAt:   resp.CreatedAt,
		RawResponse: payload,
	}, nil
}
