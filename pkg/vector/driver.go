// Package vector provides interfaces and implementations for vector storage.
package vector

import "context"

// Document represents a stored knowledge base item with its embedding and metadata.
type Document struct {
	// ID is a unique, stable identifier for the document.
	ID string

	// Title is the human-readable display name.
	Title string

	// Content is the full text body.
	Content string

	// Embedding is the vector representation of the document. Drivers may
	// leave it empty on reads.
	Embedding []float32

	// Metadata is an open key-value map (category, tags, author, source,
	// uploadedAt).
	Metadata map[string]any
}

// SearchResult represents a nearest-neighbor hit with its similarity score.
type SearchResult struct {
	Document

	// Score represents the similarity score (higher = more similar). Scores
	// are only comparable within one search.
	Score float64
}

// SearchOptions bounds a Search call.
type SearchOptions struct {
	// TopK is the maximum number of results. Drivers default it to 10.
	TopK int

	// ScoreThreshold drops hits scoring below it. Zero keeps every hit.
	ScoreThreshold float64
}

// ScrollOptions bounds a Scroll call.
type ScrollOptions struct {
	// Limit is the maximum number of documents returned. Drivers default it to 100.
	Limit int
}

// Driver handles storage and retrieval of documents and their embeddings in
// a single collection bound at construction. Implementations must be safe
// for concurrent use.
type Driver interface {
	// Upsert stores documents with their embeddings.
	// If a document with the same ID already exists, it is replaced.
	Upsert(ctx context.Context, docs []Document) error

	// Search finds the most similar documents to the given embedding,
	// ordered by descending score.
	Search(ctx context.Context, embedding []float32, opts SearchOptions) ([]SearchResult, error)

	// Scroll lists documents in store order without scoring them.
	Scroll(ctx context.Context, opts ScrollOptions) ([]Document, error)

	// Get retrieves documents by their IDs. Missing IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
