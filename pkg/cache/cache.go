// Package cache stores answers keyed by normalized question text so
// repeated questions skip the pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/papercomputeco/askbase/pkg/rag"
)

// Cache is an answer cache. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached answer for question, if present.
	Get(ctx context.Context, question string) (*rag.QueryResult, bool, error)

	// Set caches the answer for question.
	Set(ctx context.Context, question string, result *rag.QueryResult) error

	// Clear drops every cached answer.
	Clear(ctx context.Context) error

	Close() error
}

// Key normalizes question (case and whitespace) and hashes it.
func Key(question string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
