// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/askbase/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for knowledge base documents.
	DefaultCollectionName = "knowledge_base"

	// DefaultMaxRetries is the number of connection attempts made by NewDriver.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the initial backoff between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 5 * time.Second

	// metadata keys reserved by the driver
	titleKey    = "title"
	metadataKey = "metadata_json"

	defaultTopK        = 10
	defaultScrollLimit = 100
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries is the number of attempts to reach Chroma at startup.
	// Defaults to DefaultMaxRetries if zero.
	MaxRetries int

	// RetryDelay is the initial delay between attempts, doubled each time.
	RetryDelay time.Duration

	// MaxRetryDelay caps RetryDelay growth.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. It retries collection
// setup with exponential backoff so the API server can start before Chroma.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxRetryDelay
	}

	d := &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err := d.getOrCreateCollection(context.Background())
		if err == nil {
			d.collectionID = collectionID
			logger.Info("connected to Chroma",
				"url", c.URL,
				"collection", collectionName,
				"collection_id", collectionID,
			)
			return d, nil
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	return nil, fmt.Errorf("%w: getting or creating collection %q after %d attempts: %v",
		vector.ErrConnection, collectionName, maxRetries, lastErr)
}

func (d *Driver) collectionsURL() string {
	return d.baseURL + "/api/v2/tenants/default_tenant/databases/default_database/collections"
}

func (d *Driver) collectionURL(op string) string {
	return fmt.Sprintf("%s/%s/%s", d.collectionsURL(), d.collectionID, op)
}

// getOrCreateCollection gets an existing collection or creates a new one
// configured for cosine distance.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	status, err := d.do(ctx, http.MethodGet, d.collectionsURL()+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}
	if status == 0 {
		return "", err
	}

	// Collection doesn't exist, create it
	createBody := chromaCreateRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}
	if _, err := d.do(ctx, http.MethodPost, d.collectionsURL(), createBody, &collection); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}

	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
// It returns the HTTP status code, or 0 when the request never got a response.
func (d *Driver) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("%w: chroma returned status %d: %s", vector.ErrStore, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// Upsert stores documents with their embeddings.
func (d *Driver) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	reqBody := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}

	for i, doc := range docs {
		meta, err := encodeMetadata(doc)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		reqBody.IDs[i] = doc.ID
		reqBody.Embeddings[i] = doc.Embedding
		reqBody.Metadatas[i] = meta
		reqBody.Documents[i] = doc.Content
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionURL("upsert"), reqBody, nil); err != nil {
		return fmt.Errorf("upserting documents: %w", err)
	}

	d.logger.Debug("upserted documents to chroma", "count", len(docs))
	return nil
}

// Search finds the most similar documents to the given embedding.
// Chroma reports cosine distance; the score is 1 - distance.
func (d *Driver) Search(ctx context.Context, embedding []float32, opts vector.SearchOptions) ([]vector.SearchResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var queryResp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionURL("query"), reqBody, &queryResp); err != nil {
		return nil, fmt.Errorf("querying chroma: %w", err)
	}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return []vector.SearchResult{}, nil
	}

	ids := queryResp.IDs[0]
	var distances []float64
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	var documents []string
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	results := make([]vector.SearchResult, 0, len(ids))
	for i, id := range ids {
		result := vector.SearchResult{Document: vector.Document{ID: id}}
		if i < len(distances) {
			result.Score = 1.0 - distances[i]
		}
		if result.Score < opts.ScoreThreshold {
			continue
		}
		if i < len(documents) {
			result.Content = documents[i]
		}
		if i < len(metadatas) {
			decodeMetadata(&result.Document, metadatas[i])
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Scroll lists documents without scoring them.
func (d *Driver) Scroll(ctx context.Context, opts vector.ScrollOptions) ([]vector.Document, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultScrollLimit
	}

	return d.get(ctx, chromaGetRequest{
		Limit:   limit,
		Include: []string{"metadatas", "documents"},
	})
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return d.get(ctx, chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "documents", "embeddings"},
	})
}

func (d *Driver) get(ctx context.Context, reqBody chromaGetRequest) ([]vector.Document, error) {
	var getResp chromaGetResponse
	if _, err := d.do(ctx, http.MethodPost, d.collectionURL("get"), reqBody, &getResp); err != nil {
		return nil, fmt.Errorf("getting documents: %w", err)
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i] = vector.Document{ID: id}
		if i < len(getResp.Documents) {
			docs[i].Content = getResp.Documents[i]
		}
		if i < len(getResp.Metadatas) {
			decodeMetadata(&docs[i], getResp.Metadatas[i])
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := d.do(ctx, http.MethodPost, d.collectionURL("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}

	d.logger.Debug("deleted documents from chroma", "count", len(ids))
	return nil
}

// Count returns the number of documents in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var count int
	if _, err := d.do(ctx, http.MethodGet, d.collectionURL("count"), nil, &count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// Ping calls Chroma's heartbeat endpoint.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.do(ctx, http.MethodGet, d.baseURL+"/api/v2/heartbeat", nil, nil)
	return err
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// encodeMetadata flattens a document into Chroma's scalar-only metadata.
// The open metadata map is stored as a JSON string.
func encodeMetadata(doc vector.Document) (map[string]any, error) {
	meta := map[string]any{titleKey: doc.Title}
	if len(doc.Metadata) > 0 {
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, err
		}
		meta[metadataKey] = string(raw)
	}
	return meta, nil
}

func decodeMetadata(doc *vector.Document, meta map[string]any) {
	if meta == nil {
		return
	}
	if title, ok := meta[titleKey].(string); ok {
		doc.Title = title
	}
	if raw, ok := meta[metadataKey].(string); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			doc.Metadata = m
		}
	}
}

var _ vector.Driver = (*Driver)(nil)
