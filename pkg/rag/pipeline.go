package rag

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is a step of a pipeline run.
type State int

const (
	StateIdle State = iota
	StateRetrieving
	StateNoResults
	StateAssembling
	StateGenerating
	StateScoringConfidence
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateNoResults:
		return "no_results"
	case StateAssembling:
		return "assembling"
	case StateGenerating:
		return "generating"
	case StateScoringConfidence:
		return "scoring_confidence"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateObserver is called on every state transition of a run. It must be
// safe for concurrent use when the pipeline serves concurrent questions.
type StateObserver func(question string, from, to State)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStateObserver registers an observer for state transitions.
func WithStateObserver(o StateObserver) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Pipeline answers questions by retrieval, context assembly, generation
// and confidence scoring. It does not retry and does not degrade failures
// into partial answers.
type Pipeline struct {
	retriever Retriever
	generator *Generator
	observer  StateObserver
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline from its collaborators.
func NewPipeline(retriever Retriever, generator *Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer runs the pipeline for one question. A question with no relevant
// documents is answered with NoResultsAnswer and no sources, without
// calling the completion provider.
func (p *Pipeline) Answer(ctx context.Context, question string) (*QueryResult, error) {
	start := time.Now()
	run := &run{pipeline: p, question: question, state: StateIdle}

	run.transition(StateRetrieving)
	results, err := p.retriever.Retrieve(ctx, question)
	if err != nil {
		run.transition(StateFailed)
		p.logger.Error("retrieval failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if len(results) == 0 {
		run.transition(StateNoResults)
		p.logger.Warn("no relevant documents found", "question_length", len(question))
		return &QueryResult{
			Answer:           NoResultsAnswer,
			Sources:          []SearchResult{},
			Confidence:       0,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	run.transition(StateAssembling)
	docContext := AssembleContext(results)

	run.transition(StateGenerating)
	gen, err := p.generator.Generate(ctx, question, docContext)
	if err != nil {
		run.transition(StateFailed)
		return nil, err
	}

	run.transition(StateScoringConfidence)
	confidence := ScaleConfidence(EstimateConfidence(results))

	elapsed := time.Since(start).Milliseconds()
	run.transition(StateDone)

	p.logger.Info("question answered",
		"processing_time_ms", elapsed,
		"sources", len(results),
		"confidence", confidence,
	)

	return &QueryResult{
		Answer:           gen.Answer,
		Sources:          results,
		Confidence:       confidence,
		ProcessingTimeMs: elapsed,
		Model:            gen.Model,
		Usage:            gen.Usage,
	}, nil
}

// AnswerBatch answers questions concurrently. Results are index-aligned
// with questions; the first failure cancels the rest and fails the batch.
func (p *Pipeline) AnswerBatch(ctx context.Context, questions []string) ([]*QueryResult, error) {
	results := make([]*QueryResult, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range questions {
		g.Go(func() error {
			res, err := p.Answer(gctx, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type run struct {
	pipeline *Pipeline
	question string
	state    State
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	if r.pipeline.observer != nil {
		r.pipeline.observer(r.question, from, to)
	}
}
