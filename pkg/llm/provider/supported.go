package provider

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/askbase/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/askbase/pkg/llm/provider/ollama"
	"github.com/papercomputeco/askbase/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Ollama    = "ollama"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Ollama}
}

// NewCompleterOpts configures New.
type NewCompleterOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Logger       *slog.Logger
}

// New creates a Completer for the given provider type.
// Returns an error if the provider type is not recognized.
func New(o *NewCompleterOpts) (Completer, error) {
	switch o.ProviderType {
	case Anthropic:
		return anthropic.NewClient(anthropic.Config{
			BaseURL: o.TargetURL,
			APIKey:  o.APIKey,
		}, o.Logger)
	case OpenAI:
		return openai.NewClient(openai.Config{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			MaxRetries: openai.DefaultMaxRetries,
		}, o.Logger)
	case Ollama:
		return ollama.NewClient(ollama.Config{
			BaseURL: o.TargetURL,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", o.ProviderType, SupportedProviders())
	}
}
