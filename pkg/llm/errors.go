package llm

import "errors"

// ErrCompletion is wrapped by every provider client failure.
var ErrCompletion = errors.New("completion failed")

// ErrorResponse is the JSON error body returned by the API server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
