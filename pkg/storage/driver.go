// Package storage persists the query log and answer feedback.
package storage

import (
	"context"
	"time"
)

// Query outcomes recorded in the query log.
const (
	OutcomeAnswered  = "answered"
	OutcomeNoResults = "no_results"
	OutcomeFailed    = "failed"
)

// QueryRecord is one answered (or failed) question.
type QueryRecord struct {
	ID               string
	Question         string
	Answer           string
	SourceIDs        []string
	Confidence       float64
	ProcessingTimeMs int64
	TotalTokens      int
	Outcome          string
	CreatedAt        time.Time
}

// Feedback is a user's rating of an answer.
type Feedback struct {
	QuestionID string
	Rating     int
	Comment    string
	Helpful    bool
	CreatedAt  time.Time
}

// UsageStats summarizes the query log.
type UsageStats struct {
	TotalQueries        int
	QueriesSince        int
	NoResultQueries     int
	FailedQueries       int
	AvgProcessingTimeMs float64
	AvgConfidence       float64
	TotalTokens         int
}

// SuccessRate is the share of queries that did not fail, in [0,1].
func (s *UsageStats) SuccessRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.TotalQueries-s.FailedQueries) / float64(s.TotalQueries)
}

// FeedbackStats summarizes collected feedback.
type FeedbackStats struct {
	TotalFeedback      int
	AverageRating      float64
	HelpfulCount       int
	RatingDistribution map[int]int
	RecentComments     []Feedback
}

// HelpfulPercentage is the share of feedback marked helpful, 0-100.
func (s *FeedbackStats) HelpfulPercentage() float64 {
	if s.TotalFeedback == 0 {
		return 0
	}
	return float64(s.HelpfulCount) * 100 / float64(s.TotalFeedback)
}

// RecentCommentsLimit bounds FeedbackStats.RecentComments.
const RecentCommentsLimit = 5

// Driver defines the interface for query log and feedback backends.
// Implementations must be safe for concurrent use.
type Driver interface {
	// RecordQuery appends a record to the query log.
	RecordQuery(ctx context.Context, rec *QueryRecord) error

	// GetQuery returns a logged query by ID, or a NotFoundError.
	GetQuery(ctx context.Context, id string) (*QueryRecord, error)

	// SaveFeedback stores feedback for a logged query. Returns a NotFoundError
	// if the question ID was never recorded.
	SaveFeedback(ctx context.Context, fb *Feedback) error

	// ListFeedback returns up to limit feedback entries, newest first.
	ListFeedback(ctx context.Context, limit int) ([]Feedback, error)

	// UsageStats summarizes the query log; QueriesSince counts records
	// created at or after since.
	UsageStats(ctx context.Context, since time.Time) (*UsageStats, error)

	// FeedbackStats summarizes all feedback.
	FeedbackStats(ctx context.Context) (*FeedbackStats, error)

	// Close closes the store and releases any resources.
	Close() error
}
