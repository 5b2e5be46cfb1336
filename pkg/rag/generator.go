package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/llm/provider"
)

const (
	DefaultMaxTokens   = 1500
	DefaultTemperature = 0.3
	DefaultTopP        = 0.95
)

// SystemPrompt constrains the model to the supplied context.
const SystemPrompt = `You are an intelligent enterprise knowledge assistant. Your role is to provide accurate, helpful answers based on the company's knowledge base.

Guidelines:
- Answer questions using only the provided context documents
- Be concise and professional
- If the context doesn't contain enough information, acknowledge the limitation
- Cite sources by referring to document numbers (e.g., "According to Document 1...")
- If multiple documents provide relevant information, synthesize the answer
- Never invent facts that are not in the context documents`

const citeInstruction = "Please provide a comprehensive answer based on the context above. Remember to cite your sources."

// Generation is the outcome of one completion call.
type Generation struct {
	Answer string
	Model  string
	Usage  *llm.Usage
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	Completer provider.Completer
	Model     string

	// MaxTokens defaults to DefaultMaxTokens.
	MaxTokens int

	// Temperature defaults to DefaultTemperature when nil. Zero is a valid
	// setting.
	Temperature *float64

	Logger *slog.Logger
}

// Generator turns a question and an assembled context into an answer.
type Generator struct {
	completer   provider.Completer
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(c GeneratorConfig) *Generator {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if c.Temperature != nil {
		temperature = *c.Temperature
	}
	return &Generator{
		completer:   c.Completer,
		model:       c.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      orDiscard(c.Logger),
	}
}

// BuildUserPrompt renders the user turn sent alongside SystemPrompt.
func BuildUserPrompt(question, docContext string) string {
	return fmt.Sprintf("Context documents:\n\n%s\n\n---\n\nQuestion: %s\n\n%s", docContext, question, citeInstruction)
}

// Generate asks the completion provider for an answer. An empty completion
// yields FallbackAnswer; a provider failure yields a *GenerationError.
func (g *Generator) Generate(ctx context.Context, question, docContext string) (*Generation, error) {
	maxTokens := g.maxTokens
	temperature := g.temperature
	topP := DefaultTopP

	req := &llm.ChatRequest{
		Model:  g.model,
		System: SystemPrompt,
		Messages: []llm.Message{
			llm.NewTextMessage("user", BuildUserPrompt(question, docContext)),
		},
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}

	start := time.Now()
	resp, err := g.completer.Complete(ctx, req)
	if err != nil {
		g.logger.Error("completion failed",
			"provider", g.completer.Name(),
			"model", g.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, &GenerationError{Provider: g.completer.Name(), Err: err}
	}

	answer := strings.TrimSpace(resp.Message.GetText())
	if answer == "" {
		g.logger.Warn("completion returned no text, using fallback answer",
			"provider", g.completer.Name(),
			"stop_reason", resp.StopReason,
		)
		answer = FallbackAnswer
	}

	model := resp.Model
	if model == "" {
		model = g.model
	}

	attrs := []any{
		"provider", g.completer.Name(),
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if resp.Usage != nil {
		attrs = append(attrs, "total_tokens", resp.Usage.TotalTokens)
	}
	g.logger.Info("answer generated", attrs...)

	return &Generation{
		Answer: answer,
		Model:  model,
		Usage:  resp.Usage,
	}, nil
}
