package rag

import (
	"fmt"
	"strings"
)

const contextDelimiter = "\n---\n\n"

// AssembleContext renders results as numbered document blocks in the
// given order, so answers can cite "Document N".
func AssembleContext(results []SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Document %d: %s]\n%s\n", i+1, r.Title, r.Content)
	}
	return strings.Join(blocks, contextDelimiter)
}
