// Package sqldriver implements storage.Driver on an ent SQL driver. Queries
// are built with ent's dialect builder and the schema is created with ent's
// migration engine, so the sqlite and postgres packages only open the
// connection.
package sqldriver

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/askbase/pkg/storage"
)

// Driver implements storage.Driver on an *entsql.Driver.
type Driver struct {
	drv *entsql.Driver
}

// New wraps drv and runs the schema migration. The caller keeps ownership of
// drv until New succeeds.
func New(ctx context.Context, drv *entsql.Driver) (*Driver, error) {
	d := &Driver{drv: drv}
	if err := d.Migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Migrate creates or updates the tables. Changes are append-only.
func (d *Driver) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

func (d *Driver) exec(ctx context.Context, q entsql.Querier) error {
	query, args := q.Query()
	return d.drv.Exec(ctx, query, args, nil)
}

func (d *Driver) query(ctx context.Context, q entsql.Querier) (*entsql.Rows, error) {
	query, args := q.Query()
	rows := &entsql.Rows{}
	if err := d.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// queryRow runs q and scans its first row into dest.
func (d *Driver) queryRow(ctx context.Context, q entsql.Querier, dest ...any) error {
	rows, err := d.query(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return stdsql.ErrNoRows
	}
	if err := rows.Scan(dest...); err != nil {
		return err
	}
	return rows.Err()
}

func (d *Driver) count(ctx context.Context, table string, preds ...*entsql.Predicate) (int, error) {
	sel := d.builder().Select("COUNT(*)").From(entsql.Table(table))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	var n int
	if err := d.queryRow(ctx, sel, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// RecordQuery appends a record to the query log.
func (d *Driver) RecordQuery(ctx context.Context, rec *storage.QueryRecord) error {
	if rec == nil {
		return errors.New("cannot record nil query")
	}
	if rec.ID == "" {
		return errors.New("query record requires an ID")
	}

	sourceIDs := rec.SourceIDs
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	encoded, err := json.Marshal(sourceIDs)
	if err != nil {
		return fmt.Errorf("encoding source ids: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	insert := d.builder().Insert(queriesTable).
		Columns("id", "question", "answer", "source_ids", "confidence", "processing_time_ms", "total_tokens", "outcome", "created_at").
		Values(rec.ID, rec.Question, rec.Answer, string(encoded), rec.Confidence,
			rec.ProcessingTimeMs, rec.TotalTokens, rec.Outcome, createdAt.UnixMilli())
	if err := d.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// GetQuery returns a logged query by ID.
func (d *Driver) GetQuery(ctx context.Context, id string) (*storage.QueryRecord, error) {
	var (
		rec       storage.QueryRecord
		sourceIDs string
		createdAt int64
	)

	sel := d.builder().
		Select("id", "question", "answer", "source_ids", "confidence", "processing_time_ms", "total_tokens", "outcome", "created_at").
		From(entsql.Table(queriesTable)).
		Where(entsql.EQ("id", id))
	err := d.queryRow(ctx, sel,
		&rec.ID, &rec.Question, &rec.Answer, &sourceIDs, &rec.Confidence,
		&rec.ProcessingTimeMs, &rec.TotalTokens, &rec.Outcome, &createdAt,
	)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get query: %w", err)
	}

	if err := json.Unmarshal([]byte(sourceIDs), &rec.SourceIDs); err != nil {
		return nil, fmt.Errorf("decoding source ids: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return &rec, nil
}

// SaveFeedback stores feedback for a logged query.
func (d *Driver) SaveFeedback(ctx context.Context, fb *storage.Feedback) error {
	if fb == nil {
		return errors.New("cannot save nil feedback")
	}

	exists, err := d.count(ctx, queriesTable, entsql.EQ("id", fb.QuestionID))
	if err != nil {
		return fmt.Errorf("failed to look up query: %w", err)
	}
	if exists == 0 {
		return storage.NotFoundError{ID: fb.QuestionID}
	}

	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	insert := d.builder().Insert(feedbackTable).
		Columns("question_id", "rating", "comment", "helpful", "created_at").
		Values(fb.QuestionID, fb.Rating, fb.Comment, fb.Helpful, createdAt.UnixMilli())
	if err := d.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// ListFeedback returns up to limit feedback entries, newest first.
func (d *Driver) ListFeedback(ctx context.Context, limit int) ([]storage.Feedback, error) {
	return d.listFeedback(ctx, limit, false)
}

func (d *Driver) listFeedback(ctx context.Context, limit int, withComment bool) ([]storage.Feedback, error) {
	sel := d.builder().
		Select("question_id", "rating", "comment", "helpful", "created_at").
		From(entsql.Table(feedbackTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if withComment {
		sel.Where(entsql.NEQ("comment", ""))
	}
	if limit > 0 {
		sel.Limit(limit)
	}

	rows, err := d.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	out := []storage.Feedback{}
	for rows.Next() {
		var fb storage.Feedback
		var createdAt int64
		if err := rows.Scan(&fb.QuestionID, &fb.Rating, &fb.Comment, &fb.Helpful, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, fb)
	}
	return out, rows.Err()
}

// UsageStats summarizes the query log.
func (d *Driver) UsageStats(ctx context.Context, since time.Time) (*storage.UsageStats, error) {
	var (
		stats   storage.UsageStats
		avgMs   stdsql.NullFloat64
		avgConf stdsql.NullFloat64
		err     error
	)

	totals := d.builder().
		Select(
			"COUNT(*)",
			"AVG(CAST(processing_time_ms AS DOUBLE PRECISION))",
			"AVG(confidence)",
			"COALESCE(SUM(total_tokens), 0)",
		).
		From(entsql.Table(queriesTable))
	if err := d.queryRow(ctx, totals, &stats.TotalQueries, &avgMs, &avgConf, &stats.TotalTokens); err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}

	if stats.QueriesSince, err = d.count(ctx, queriesTable, entsql.GTE("created_at", since.UnixMilli())); err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}
	if stats.NoResultQueries, err = d.count(ctx, queriesTable, entsql.EQ("outcome", storage.OutcomeNoResults)); err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}
	if stats.FailedQueries, err = d.count(ctx, queriesTable, entsql.EQ("outcome", storage.OutcomeFailed)); err != nil {
		return nil, fmt.Errorf("failed to compute usage stats: %w", err)
	}

	stats.AvgProcessingTimeMs = avgMs.Float64
	stats.AvgConfidence = avgConf.Float64
	return &stats, nil
}

// FeedbackStats summarizes all feedback.
func (d *Driver) FeedbackStats(ctx context.Context) (*storage.FeedbackStats, error) {
	stats := &storage.FeedbackStats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var avgRating stdsql.NullFloat64
	totals := d.builder().
		Select("COUNT(*)", "AVG(CAST(rating AS DOUBLE PRECISION))").
		From(entsql.Table(feedbackTable))
	if err := d.queryRow(ctx, totals, &stats.TotalFeedback, &avgRating); err != nil {
		return nil, fmt.Errorf("failed to compute feedback stats: %w", err)
	}
	stats.AverageRating = avgRating.Float64

	var err error
	if stats.HelpfulCount, err = d.count(ctx, feedbackTable, entsql.EQ("helpful", true)); err != nil {
		return nil, fmt.Errorf("failed to compute feedback stats: %w", err)
	}

	dist := d.builder().
		Select("rating", "COUNT(*)").
		From(entsql.Table(feedbackTable)).
		GroupBy("rating")
	rows, err := d.query(ctx, dist)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating distribution: %w", err)
	}
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rating distribution: %w", err)
		}
		stats.RatingDistribution[rating] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.RecentComments, err = d.listFeedback(ctx, storage.RecentCommentsLimit, true)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.drv.Close()
}

var _ storage.Driver = (*Driver)(nil)
