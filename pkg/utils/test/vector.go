package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/askbase/pkg/vector"
)

// MockVectorDriver is a test vector driver. Search returns Results as-is,
// ignoring the score threshold, so callers' own filtering can be checked.
type MockVectorDriver struct {
	// Results is returned by Search, truncated to TopK.
	Results []vector.SearchResult

	// SearchErr, ScrollErr, UpsertErr and PingErr fail the matching calls.
	SearchErr error
	ScrollErr error
	UpsertErr error
	PingErr   error

	mu          sync.Mutex
	documents   []vector.Document
	searchCalls []vector.SearchOptions
	scrollCalls []vector.ScrollOptions
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		documents: make([]vector.Document, 0),
	}
}

func (m *MockVectorDriver) Upsert(_ context.Context, docs []vector.Document) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		replaced := false
		for i := range m.documents {
			if m.documents[i].ID == doc.ID {
				m.documents[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			m.documents = append(m.documents, doc)
		}
	}
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, _ []float32, opts vector.SearchOptions) ([]vector.SearchResult, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, opts)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if opts.TopK > 0 && len(m.Results) > opts.TopK {
		return append([]vector.SearchResult(nil), m.Results[:opts.TopK]...), nil
	}
	return append([]vector.SearchResult(nil), m.Results...), nil
}

func (m *MockVectorDriver) Scroll(_ context.Context, opts vector.ScrollOptions) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scrollCalls = append(m.scrollCalls, opts)

	if m.ScrollErr != nil {
		return nil, m.ScrollErr
	}
	if opts.Limit > 0 && len(m.documents) > opts.Limit {
		return append([]vector.Document(nil), m.documents[:opts.Limit]...), nil
	}
	return append([]vector.Document(nil), m.documents...), nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vector.Document
	for _, id := range ids {
		for _, doc := range m.documents {
			if doc.ID == id {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	kept := m.documents[:0]
	for _, doc := range m.documents {
		if !remove[doc.ID] {
			kept = append(kept, doc)
		}
	}
	m.documents = kept
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

func (m *MockVectorDriver) Ping(_ context.Context) error {
	return m.PingErr
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// SearchCalls returns the options passed to every Search call.
func (m *MockVectorDriver) SearchCalls() []vector.SearchOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.SearchOptions(nil), m.searchCalls...)
}

// ScrollCalls returns the options passed to every Scroll call.
func (m *MockVectorDriver) ScrollCalls() []vector.ScrollOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.ScrollOptions(nil), m.scrollCalls...)
}
