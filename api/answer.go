package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/askbase/pkg/cache"
	"github.com/papercomputeco/askbase/pkg/eventstream"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/storage"
)

// answerService runs questions through the pipeline, serving repeats from
// the answer cache, and records every outcome in the query log and event
// stream.
type answerService struct {
	pipeline  *rag.Pipeline
	cache     cache.Cache
	storer    storage.Driver
	publisher eventstream.Publisher
	source    eventstream.EventSource
	logger    *slog.Logger
}

// Answer answers one question. The result carries a fresh QuestionID that
// feedback can refer to. A cached result reports this request's elapsed
// time, not the time of the run that produced it.
func (a *answerService) Answer(ctx context.Context, question string) (*rag.QueryResult, error) {
	start := time.Now()
	if res, ok := a.cached(ctx, question); ok {
		res.QuestionID = uuid.NewString()
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
		a.record(ctx, question, res.QuestionID, res, nil)
		return res, nil
	}

	res, err := a.pipeline.Answer(ctx, question)
	if err != nil {
		a.record(ctx, question, uuid.NewString(), nil, err)
		return nil, err
	}

	res.QuestionID = uuid.NewString()
	a.store(ctx, question, res)
	a.record(ctx, question, res.QuestionID, res, nil)
	return res, nil
}

// AnswerBatch answers questions through the pipeline's batch fan-out. The
// cache is bypassed; every result is still recorded.
func (a *answerService) AnswerBatch(ctx context.Context, questions []string) ([]*rag.QueryResult, error) {
	results, err := a.pipeline.AnswerBatch(ctx, questions)
	if err != nil {
		return nil, err
	}

	for i, res := range results {
		res.QuestionID = uuid.NewString()
		a.record(ctx, questions[i], res.QuestionID, res, nil)
	}
	return results, nil
}

func (a *answerService) cached(ctx context.Context, question string) (*rag.QueryResult, bool) {
	if a.cache == nil {
		return nil, false
	}
	res, ok, err := a.cache.Get(ctx, question)
	if err != nil {
		a.logger.Warn("answer cache lookup failed", "error", err)
		return nil, false
	}
	if ok {
		a.logger.Debug("answer served from cache")
	}
	return res, ok
}

func (a *answerService) store(ctx context.Context, question string, res *rag.QueryResult) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, question, res); err != nil {
		a.logger.Warn("answer cache store failed", "error", err)
	}
}

// record writes the query log entry and publishes the query event. Failures
// are logged and never fail the request.
func (a *answerService) record(ctx context.Context, question, id string, res *rag.QueryResult, answerErr error) {
	ctx = context.WithoutCancel(ctx)

	rec := &storage.QueryRecord{
		ID:       id,
		Question: question,
		Outcome:  outcome(res, answerErr),
	}
	if res != nil {
		rec.Answer = res.Answer
		rec.SourceIDs = sourceIDs(res.Sources)
		rec.Confidence = res.Confidence
		rec.ProcessingTimeMs = res.ProcessingTimeMs
		if res.Usage != nil {
			rec.TotalTokens = res.Usage.TotalTokens
		}
	}

	if err := a.storer.RecordQuery(ctx, rec); err != nil {
		a.logger.Warn("failed to record query", "question_id", id, "error", err)
	}

	source := a.source
	if res != nil && res.Model != "" {
		source.Model = res.Model
	}
	event := eventstream.NewQueryAnsweredEvent(source, eventstream.QueryMeta{
		QuestionID:       id,
		Question:         question,
		Outcome:          rec.Outcome,
		SourceIDs:        rec.SourceIDs,
		Confidence:       rec.Confidence,
		ProcessingTimeMs: rec.ProcessingTimeMs,
		TotalTokens:      rec.TotalTokens,
	})
	if err := a.publisher.PublishQuery(ctx, event); err != nil {
		a.logger.Warn("failed to publish query event", "question_id", id, "error", err)
	}
}

func outcome(res *rag.QueryResult, err error) string {
	switch {
	case err != nil:
		return storage.OutcomeFailed
	case len(res.Sources) == 0:
		return storage.OutcomeNoResults
	default:
		return storage.OutcomeAnswered
	}
}

func sourceIDs(sources []rag.SearchResult) []string {
	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.ID)
	}
	return ids
}
