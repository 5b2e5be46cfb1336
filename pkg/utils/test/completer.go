package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/askbase/pkg/llm"
)

// MockCompleter is a test completion provider that records requests and
// answers with a fixed text.
type MockCompleter struct {
	// Text is returned as the assistant message content.
	Text string

	// TextFor, when set, overrides Text per request.
	TextFor func(req *llm.ChatRequest) string

	// Err, when set, is returned by every Complete call.
	Err error

	// Delay blocks each call, honoring context cancellation.
	Delay time.Duration

	mu       sync.Mutex
	requests []*llm.ChatRequest
}

// NewMockCompleter creates a completer that always answers with text.
func NewMockCompleter(text string) *MockCompleter {
	return &MockCompleter{Text: text}
}

func (m *MockCompleter) Name() string {
	return "mock"
}

func (m *MockCompleter) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Err != nil {
		return nil, m.Err
	}

	text := m.Text
	if m.TextFor != nil {
		text = m.TextFor(req)
	}

	return &llm.ChatResponse{
		Model:     req.Model,
		CreatedAt: time.Now(),
		Message:   llm.NewTextMessage("assistant", text),
		Done:      true,
		Usage: &llm.Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

// CallCount returns how many times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or nil.
func (m *MockCompleter) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
