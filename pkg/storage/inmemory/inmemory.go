// Package inmemory provides a map-backed storage driver for tests and
// single-process deployments.
package inmemory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/askbase/pkg/storage"
)

// Driver implements storage.Driver in memory.
type Driver struct {
	// mu is a read write sync mutex guarding queries and feedback
	mu sync.RWMutex

	// queries is the query log keyed by question ID
	queries map[string]*storage.QueryRecord

	// feedback is kept in insertion order
	feedback []storage.Feedback
}

// NewDriver creates a new in-memory storer.
func NewDriver() *Driver {
	return &Driver{
		queries: make(map[string]*storage.QueryRecord),
	}
}

// RecordQuery appends a record to the query log.
func (s *Driver) RecordQuery(_ context.Context, rec *storage.QueryRecord) error {
	if rec == nil {
		return errors.New("cannot record nil query")
	}
	if rec.ID == "" {
		return errors.New("query record requires an ID")
	}

	cp := *rec
	cp.SourceIDs = slices.Clone(rec.SourceIDs)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[rec.ID] = &cp
	return nil
}

// GetQuery returns a logged query by ID.
func (s *Driver) GetQuery(_ context.Context, id string) (*storage.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.queries[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	cp := *rec
	cp.SourceIDs = slices.Clone(rec.SourceIDs)
	return &cp, nil
}

// SaveFeedback stores feedback for a logged query.
func (s *Driver) SaveFeedback(_ context.Context, fb *storage.Feedback) error {
	if fb == nil {
		return errors.New("cannot save nil feedback")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queries[fb.QuestionID]; !ok {
		return storage.NotFoundError{ID: fb.QuestionID}
	}

	cp := *fb
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.feedback = append(s.feedback, cp)
	return nil
}

// ListFeedback returns up to limit feedback entries, newest first.
func (s *Driver) ListFeedback(_ context.Context, limit int) ([]storage.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFeedback(limit, false), nil
}

// UsageStats summarizes the query log.
func (s *Driver) UsageStats(_ context.Context, since time.Time) (*storage.UsageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.UsageStats{}
	var totalMs int64
	var totalConfidence float64
	for _, rec := range s.queries {
		stats.TotalQueries++
		if !rec.CreatedAt.Before(since) {
			stats.QueriesSince++
		}
		switch rec.Outcome {
		case storage.OutcomeNoResults:
			stats.NoResultQueries++
		case storage.OutcomeFailed:
			stats.FailedQueries++
		}
		totalMs += rec.ProcessingTimeMs
		totalConfidence += rec.Confidence
		stats.TotalTokens += rec.TotalTokens
	}

	if stats.TotalQueries > 0 {
		stats.AvgProcessingTimeMs = float64(totalMs) / float64(stats.TotalQueries)
		stats.AvgConfidence = totalConfidence / float64(stats.TotalQueries)
	}
	return stats, nil
}

// FeedbackStats summarizes all feedback.
func (s *Driver) FeedbackStats(_ context.Context) (*storage.FeedbackStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.FeedbackStats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	var ratingSum int
	for _, fb := range s.feedback {
		stats.TotalFeedback++
		ratingSum += fb.Rating
		stats.RatingDistribution[fb.Rating]++
		if fb.Helpful {
			stats.HelpfulCount++
		}
	}
	if stats.TotalFeedback > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.TotalFeedback)
	}
	stats.RecentComments = s.newestFeedback(storage.RecentCommentsLimit, true)
	return stats, nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

// newestFeedback must be called with mu held.
func (s *Driver) newestFeedback(limit int, withComment bool) []storage.Feedback {
	out := make([]storage.Feedback, 0, len(s.feedback))
	for i := len(s.feedback) - 1; i >= 0; i-- {
		if withComment && s.feedback[i].Comment == "" {
			continue
		}
		out = append(out, s.feedback[i])
	}
	slices.SortStableFunc(out, func(a, b storage.Feedback) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ storage.Driver = (*Driver)(nil)
