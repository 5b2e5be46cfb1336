package rag

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/askbase/pkg/embeddings"
	"github.com/papercomputeco/askbase/pkg/vector"
)

const (
	// DefaultKeywordScanLimit is how many stored documents keyword
	// retrieval scores per question.
	DefaultKeywordScanLimit = 100

	// DefaultKeywordTopK bounds keyword retrieval results.
	DefaultKeywordTopK = 3

	// KeywordMinScore is the exclusive lower bound on keyword scores.
	KeywordMinScore = 0.1

	keywordMinWordLength = 4
)

// Retriever finds knowledge base documents relevant to a question.
// An empty result is a valid outcome, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]SearchResult, error)
}

// VectorRetrieverConfig configures a VectorRetriever.
type VectorRetrieverConfig struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver

	// TopK defaults to DefaultTopK.
	TopK int

	// MinRelevanceScore defaults to DefaultMinRelevanceScore.
	MinRelevanceScore float64

	Logger *slog.Logger
}

// VectorRetriever embeds the question and runs a nearest-neighbor search.
type VectorRetriever struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	topK     int
	minScore float64
	logger   *slog.Logger
}

// NewVectorRetriever creates a VectorRetriever.
func NewVectorRetriever(c VectorRetrieverConfig) *VectorRetriever {
	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	minScore := c.MinRelevanceScore
	if minScore <= 0 {
		minScore = DefaultMinRelevanceScore
	}
	return &VectorRetriever{
		embedder: c.Embedder,
		driver:   c.Driver,
		topK:     topK,
		minScore: minScore,
		logger:   orDiscard(c.Logger),
	}
}

// Retrieve returns at most TopK hits scoring at least MinRelevanceScore,
// highest first. Equal scores keep the store's order.
func (r *VectorRetriever) Retrieve(ctx context.Context, question string) ([]SearchResult, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &RetrievalError{Op: "embed", Err: err}
	}

	hits, err := r.driver.Search(ctx, embedding, vector.SearchOptions{
		TopK:           r.topK,
		ScoreThreshold: r.minScore,
	})
	if err != nil {
		return nil, &RetrievalError{Op: "search", Err: err}
	}

	// Stores may ignore the threshold, so it is applied again here.
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < r.minScore {
			continue
		}
		results = append(results, fromDocument(hit.Document, hit.Score))
	}

	results = rank(results, r.topK)

	r.logger.Debug("vector retrieval completed",
		"hits", len(hits),
		"results", len(results),
		"top_k", r.topK,
		"min_score", r.minScore,
	)
	return results, nil
}

// KeywordRetrieverConfig configures a KeywordRetriever.
type KeywordRetrieverConfig struct {
	Driver vector.Driver

	// ScanLimit defaults to DefaultKeywordScanLimit.
	ScanLimit int

	// TopK defaults to DefaultKeywordTopK.
	TopK int

	Logger *slog.Logger
}

// KeywordRetriever scores stored documents by question word overlap. It
// serves deployments without an embedding model.
type KeywordRetriever struct {
	driver    vector.Driver
	scanLimit int
	topK      int
	logger    *slog.Logger
}

// NewKeywordRetriever creates a KeywordRetriever.
func NewKeywordRetriever(c KeywordRetrieverConfig) *KeywordRetriever {
	scanLimit := c.ScanLimit
	if scanLimit <= 0 {
		scanLimit = DefaultKeywordScanLimit
	}
	topK := c.TopK
	if topK <= 0 {
		topK = DefaultKeywordTopK
	}
	return &KeywordRetriever{
		driver:    c.Driver,
		scanLimit: scanLimit,
		topK:      topK,
		logger:    orDiscard(c.Logger),
	}
}

// Retrieve scores up to ScanLimit stored documents with KeywordScore and
// returns the TopK scoring above KeywordMinScore, highest first.
func (r *KeywordRetriever) Retrieve(ctx context.Context, question string) ([]SearchResult, error) {
	docs, err := r.driver.Scroll(ctx, vector.ScrollOptions{Limit: r.scanLimit})
	if err != nil {
		return nil, &RetrievalError{Op: "scroll", Err: err}
	}

	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		score := KeywordScore(question, doc.Content)
		if score <= KeywordMinScore {
			continue
		}
		results = append(results, fromDocument(doc, score))
	}

	results = rank(results, r.topK)

	r.logger.Debug("keyword retrieval completed",
		"scanned", len(docs),
		"results", len(results),
	)
	return results, nil
}

// KeywordScore is the number of question words longer than three
// characters found in content, ignoring case, divided by the total number
// of whitespace-separated question words.
func KeywordScore(question, content string) float64 {
	words := strings.Fields(strings.ToLower(question))
	if len(words) == 0 {
		return 0
	}

	content = strings.ToLower(content)
	matches := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= keywordMinWordLength && strings.Contains(content, w) {
			matches++
		}
	}
	return float64(matches) / float64(len(words))
}

func rank(results []SearchResult, topK int) []SearchResult {
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func fromDocument(doc vector.Document, score float64) SearchResult {
	title := doc.Title
	if title == "" {
		title = UntitledDocument
	}
	return SearchResult{
		ID:       doc.ID,
		Title:    title,
		Content:  doc.Content,
		Score:    score,
		Metadata: doc.Metadata,
	}
}

var (
	_ Retriever = (*VectorRetriever)(nil)
	_ Retriever = (*KeywordRetriever)(nil)
)

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
