// Package provider defines the completion clients used to generate answers.
package provider

import (
	"context"

	"github.com/papercomputeco/askbase/pkg/llm"
)

// Completer sends a chat completion request to a hosted or local model.
// Implementations wrap failures with llm.ErrCompletion.
type Completer interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama").
	Name() string

	// Complete runs a single non-streaming completion.
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}
