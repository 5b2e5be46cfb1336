// Package rag implements the question-answering pipeline: retrieval of
// relevant knowledge base documents, context assembly, grounded answer
// generation and confidence scoring.
//
// The pipeline holds only read-only collaborators (an embeddings.Embedder,
// a vector.Driver and a provider.Completer) injected at construction, so a
// single *Pipeline may serve any number of concurrent questions.
package rag

import (
	"github.com/papercomputeco/askbase/pkg/llm"
)

const (
	// DefaultTopK is the maximum number of sources returned by vector retrieval.
	DefaultTopK = 5

	// DefaultMinRelevanceScore is the similarity a hit must reach to be used.
	DefaultMinRelevanceScore = 0.7

	// NoResultsAnswer is returned when retrieval finds nothing relevant.
	NoResultsAnswer = "I could not find any relevant information in the knowledge base to answer your question. Please try rephrasing or contact support for assistance."

	// FallbackAnswer replaces an empty completion.
	FallbackAnswer = "Unable to generate answer"

	// UntitledDocument is the display title for documents stored without one.
	UntitledDocument = "Untitled"
)

// SearchResult is a single retrieval hit. Scores are only comparable
// within the result set of one query.
type SearchResult struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult is the answer to one question.
type QueryResult struct {
	// QuestionID identifies the answer in the query log. The pipeline
	// leaves it empty; the serving layer assigns it.
	QuestionID string `json:"questionId,omitempty"`

	// Answer is the generated text, NoResultsAnswer or FallbackAnswer.
	Answer string `json:"answer"`

	// Sources are the documents fed to the generator, highest score first.
	// Never nil.
	Sources []SearchResult `json:"sources"`

	// Confidence is the mean source score scaled to 0-100.
	Confidence float64 `json:"confidence"`

	// ProcessingTimeMs is the wall-clock duration of the pipeline run.
	ProcessingTimeMs int64 `json:"processingTimeMs"`

	// Model that produced the answer, empty when generation was skipped.
	Model string `json:"model,omitempty"`

	// Usage reported by the completion provider, if any.
	Usage *llm.Usage `json:"usage,omitempty"`
}
