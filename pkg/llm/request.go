package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Provider clients translate it into their specific wire formats.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5", "llama3.2")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
