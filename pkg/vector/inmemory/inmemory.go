// Package inmemory provides a brute-force cosine vector driver kept in
// process memory.
package inmemory

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/askbase/pkg/vector"
	"github.com/papercomputeco/askbase/pkg/vector/similarity"
)

const (
	defaultTopK        = 10
	defaultScrollLimit = 100
)

// Driver implements vector.Driver over an insertion-ordered slice.
type Driver struct {
	mu     sync.RWMutex
	docs   []vector.Document
	index  map[string]int
	logger *slog.Logger
}

// NewDriver creates an empty in-memory driver.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{
		index:  make(map[string]int),
		logger: logger,
	}
}

// Upsert stores documents, replacing existing ones in place so their store
// order is kept.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		doc = clone(doc)
		if i, ok := d.index[doc.ID]; ok {
			d.docs[i] = doc
			continue
		}
		d.index[doc.ID] = len(d.docs)
		d.docs = append(d.docs, doc)
	}

	d.logger.Debug("upserted documents in memory", "count", len(docs))
	return nil
}

// Search scores every document by cosine similarity. Ties keep store order.
func (d *Driver) Search(ctx context.Context, embedding []float32, opts vector.SearchOptions) ([]vector.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	d.mu.RLock()
	results := make([]vector.SearchResult, 0, len(d.docs))
	for _, doc := range d.docs {
		score := similarity.Cosine(embedding, doc.Embedding)
		if score < opts.ScoreThreshold {
			continue
		}
		results = append(results, vector.SearchResult{Document: clone(doc), Score: score})
	}
	d.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Scroll returns documents in insertion order.
func (d *Driver) Scroll(ctx context.Context, opts vector.ScrollOptions) ([]vector.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultScrollLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	n := min(limit, len(d.docs))
	out := make([]vector.Document, n)
	for i := range n {
		out[i] = clone(d.docs[i])
	}
	return out, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if i, ok := d.index[id]; ok {
			out = append(out, clone(d.docs[i]))
		}
	}
	return out, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	d.docs = slices.DeleteFunc(d.docs, func(doc vector.Document) bool {
		return remove[doc.ID]
	})

	clear(d.index)
	for i, doc := range d.docs {
		d.index[doc.ID] = i
	}

	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

// Ping always succeeds.
func (d *Driver) Ping(context.Context) error {
	return nil
}

// Close drops all documents.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = nil
	clear(d.index)
	return nil
}

func clone(doc vector.Document) vector.Document {
	doc.Embedding = slices.Clone(doc.Embedding)
	doc.Metadata = maps.Clone(doc.Metadata)
	return doc
}

var _ vector.Driver = (*Driver)(nil)
