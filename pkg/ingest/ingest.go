// Package ingest is the knowledge base write path: it validates uploaded
// documents, embeds them and stores them in the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/askbase/pkg/embeddings"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/vector"
)

const (
	MinContentLength = 10
	MaxContentLength = 1_000_000

	DefaultCategory = "general"
	DefaultAuthor   = "unknown"
	DefaultSource   = "user-upload"

	// ListLimit bounds List results.
	ListLimit = 1000

	maxIDTitleLength = 50
	bulkConcurrency  = 4
)

// Metadata keys written for every document.
const (
	MetaCategory   = "category"
	MetaTags       = "tags"
	MetaAuthor     = "author"
	MetaSource     = "source"
	MetaUploadedAt = "uploadedAt"
)

// Upload is a document submitted for indexing.
type Upload struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Author   string   `json:"author,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// DocumentInfo is the listing view of a stored document.
type DocumentInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Author     string   `json:"author,omitempty"`
	Source     string   `json:"source,omitempty"`
	UploadedAt string   `json:"uploadedAt,omitempty"`
}

// UploadResult reports one document of a bulk upload.
type UploadResult struct {
	Title      string `json:"title"`
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Stats describes the knowledge base.
type Stats struct {
	Documents int `json:"documents"`
}

// Config configures a Service.
type Config struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver
	Logger   *slog.Logger

	// OnChange runs after documents are added or removed.
	OnChange func(ctx context.Context)
}

// Service indexes and manages knowledge base documents.
type Service struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *slog.Logger
	onChange func(ctx context.Context)
	now      func() time.Time

	// idMu guards lastMillis, which keeps generated IDs unique within
	// one process.
	idMu       sync.Mutex
	lastMillis int64
}

// NewService creates a Service.
func NewService(c Config) *Service {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		embedder: c.Embedder,
		driver:   c.Driver,
		logger:   logger,
		onChange: c.OnChange,
		now:      time.Now,
	}
}

// Validate checks an upload has a title and 10 to 1,000,000 characters of content.
func Validate(u Upload) error {
	if strings.TrimSpace(u.Title) == "" {
		return &rag.ValidationError{Field: "title", Message: "document title is required"}
	}
	if strings.TrimSpace(u.Content) == "" {
		return &rag.ValidationError{Field: "content", Message: "document content is required"}
	}
	n := utf8.RuneCountInString(u.Content)
	if n < MinContentLength {
		return &rag.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("document content is too short (minimum %d characters)", MinContentLength),
		}
	}
	if n > MaxContentLength {
		return &rag.ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("document content is too large (maximum %d characters)", MaxContentLength),
		}
	}
	return nil
}

// NewDocumentID derives an ID from the sanitized title and the current
// time in milliseconds. IDs from one Service never repeat.
func (s *Service) NewDocumentID(title string) string {
	s.idMu.Lock()
	millis := s.now().UnixMilli()
	if millis <= s.lastMillis {
		millis = s.lastMillis + 1
	}
	s.lastMillis = millis
	s.idMu.Unlock()

	return fmt.Sprintf("%s-%d", SanitizeTitle(title), millis)
}

// SanitizeTitle lowercases title, replaces anything but a-z and 0-9 with
// '-' and truncates to 50 characters.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if b.Len() >= maxIDTitleLength {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Upload validates, embeds and stores a document, returning its new ID.
func (s *Service) Upload(ctx context.Context, u Upload) (string, error) {
	if err := Validate(u); err != nil {
		return "", err
	}
	id := s.NewDocumentID(u.Title)
	if err := s.Index(ctx, id, u); err != nil {
		return "", err
	}
	return id, nil
}

// Index embeds and stores a validated upload under id.
func (s *Service) Index(ctx context.Context, id string, u Upload) error {
	start := s.now()

	embedding, err := s.embedder.Embed(ctx, u.Title+"\n\n"+u.Content)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", id, err)
	}

	doc := vector.Document{
		ID:        id,
		Title:     u.Title,
		Content:   u.Content,
		Embedding: embedding,
		Metadata:  buildMetadata(u, start),
	}

	if err := s.driver.Upsert(ctx, []vector.Document{doc}); err != nil {
		return fmt.Errorf("storing document %s: %w", id, err)
	}

	s.logger.Info("document indexed",
		"id", id,
		"title", u.Title,
		"content_length", len(u.Content),
		"embedding_dim", len(embedding),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.changed(ctx)
	return nil
}

// UploadMany uploads documents concurrently. One failure does not stop
// the others; results are index-aligned with uploads.
func (s *Service) UploadMany(ctx context.Context, uploads []Upload) []UploadResult {
	results := make([]UploadResult, len(uploads))

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, u := range uploads {
		g.Go(func() error {
			res := UploadResult{Title: u.Title}
			id, err := s.Upload(ctx, u)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Success = true
				res.DocumentID = id
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Delete removes a document by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &rag.ValidationError{Field: "id", Message: "document id is required"}
	}
	if err := s.driver.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	s.logger.Info("document deleted", "id", id)
	s.changed(ctx)
	return nil
}

// List returns up to ListLimit stored documents.
func (s *Service) List(ctx context.Context) ([]DocumentInfo, error) {
	docs, err := s.driver.Scroll(ctx, vector.ScrollOptions{Limit: ListLimit})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	out := make([]DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		title := doc.Title
		if title == "" {
			title = rag.UntitledDocument
		}
		out = append(out, DocumentInfo{
			ID:         doc.ID,
			Title:      title,
			Category:   stringMeta(doc.Metadata, MetaCategory),
			Tags:       stringsMeta(doc.Metadata, MetaTags),
			Author:     stringMeta(doc.Metadata, MetaAuthor),
			Source:     stringMeta(doc.Metadata, MetaSource),
			UploadedAt: stringMeta(doc.Metadata, MetaUploadedAt),
		})
	}
	return out, nil
}

// Stats reports the number of stored documents.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.driver.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	return &Stats{Documents: n}, nil
}

func (s *Service) changed(ctx context.Context) {
	if s.onChange != nil {
		s.onChange(ctx)
	}
}

func buildMetadata(u Upload, at time.Time) map[string]any {
	category := u.Category
	if category == "" {
		category = DefaultCategory
	}
	author := u.Author
	if author == "" {
		author = DefaultAuthor
	}
	source := u.Source
	if source == "" {
		source = DefaultSource
	}
	tags := u.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		MetaCategory:   category,
		MetaTags:       tags,
		MetaAuthor:     author,
		MetaSource:     source,
		MetaUploadedAt: at.UTC().Format(time.RFC3339),
	}
}

func stringMeta(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

// stringsMeta accepts both []string and the []any produced by JSON decoding.
func stringsMeta(meta map[string]any, key string) []string {
	switch v := meta[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IsValidation reports whether err is an upload validation failure.
func IsValidation(err error) bool {
	var verr *rag.ValidationError
	return errors.As(err, &verr)
}
