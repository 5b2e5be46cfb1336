// Package apiclient is the HTTP client CLI commands use to talk to a
// running askbase API server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/askbase/api"
	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/llm"
)

// DefaultTimeout covers a full answer generation round trip.
const DefaultTimeout = 90 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Err        string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status %d: %s: %s", e.StatusCode, e.Err, e.Message)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Err)
}

// Client talks to one askbase API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the server at target, e.g. http://localhost:8081.
func New(target string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(target, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Ask posts a question to /v1/query.
func (c *Client) Ask(ctx context.Context, question string) (*api.QueryResponse, error) {
	var out api.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/query", api.QueryRequest{Question: question}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskBatch posts questions to /v1/query/batch.
func (c *Client) AskBatch(ctx context.Context, questions []string) (*api.BatchQueryResponse, error) {
	var out api.BatchQueryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/query/batch", api.BatchQueryRequest{Questions: questions}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Feedback rates a previously answered question.
func (c *Client) Feedback(ctx context.Context, req api.FeedbackRequest) (*api.MessageResponse, error) {
	var out api.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/v1/query/feedback", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload stores one document synchronously.
func (c *Client) Upload(ctx context.Context, u ingest.Upload) (*api.UploadResponse, error) {
	var out api.UploadResponse
	if err := c.do(ctx, http.MethodPost, "/v1/documents", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadBulk stores up to api.MaxBulkDocuments documents.
func (c *Client) UploadBulk(ctx context.Context, uploads []ingest.Upload) (*api.BulkUploadResponse, error) {
	var out api.BulkUploadResponse
	if err := c.do(ctx, http.MethodPost, "/v1/documents/bulk", api.BulkUploadRequest{Documents: uploads}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDocuments lists stored documents.
func (c *Client) ListDocuments(ctx context.Context) (*api.ListDocumentsResponse, error) {
	var out api.ListDocumentsResponse
	if err := c.do(ctx, http.MethodGet, "/v1/documents", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes a document by ID.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/documents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to API at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Err: strings.TrimSpace(string(respBody))}
		var errResp llm.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Err = errResp.Error
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
