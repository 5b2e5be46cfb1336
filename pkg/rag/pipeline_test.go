package rag_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/logger"
	"github.com/papercomputeco/askbase/pkg/rag"
	testutils "github.com/papercomputeco/askbase/pkg/utils/test"
	"github.com/papercomputeco/askbase/pkg/vector"
)

var _ = Describe("Pipeline", func() {
	var (
		embedder  *testutils.MockEmbedder
		driver    *testutils.MockVectorDriver
		completer *testutils.MockCompleter
		pipeline  *rag.Pipeline
		ctx       context.Context
	)

	newPipeline := func(opts ...rag.Option) *rag.Pipeline {
		retriever := rag.NewVectorRetriever(rag.VectorRetrieverConfig{
			Embedder:          embedder,
			Driver:            driver,
			TopK:              5,
			MinRelevanceScore: 0.7,
			Logger:            logger.Nop(),
		})
		generator := rag.NewGenerator(rag.GeneratorConfig{
			Completer: completer,
			Model:     "test-model",
			Logger:    logger.Nop(),
		})
		return rag.NewPipeline(retriever, generator, opts...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		completer = testutils.NewMockCompleter("According to Document 1, onboarding takes one week.")
		pipeline = newPipeline()
	})

	Describe("Answer", func() {
		It("answers from a single relevant document", func() {
			driver.Results = []vector.SearchResult{hit("doc1", "Onboarding Guide", 0.85)}

			res, err := pipeline.Answer(ctx, "How does onboarding work?")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sources).To(HaveLen(1))
			Expect(res.Sources[0].ID).To(Equal("doc1"))
			Expect(res.Confidence).To(BeNumerically("~", 85.0, 1e-9))
			Expect(res.Answer).NotTo(BeEmpty())
			Expect(res.Model).To(Equal("test-model"))
			Expect(res.ProcessingTimeMs).To(BeNumerically(">=", 0))

			Expect(completer.CallCount()).To(Equal(1))
			Expect(completer.LastRequest().Messages[0].GetText()).To(ContainSubstring("Onboarding Guide"))
		})

		It("returns the no-results answer without generating", func() {
			res, err := pipeline.Answer(ctx, "Nonexistent topic xyz")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Answer).To(ContainSubstring("could not find"))
			Expect(res.Sources).NotTo(BeNil())
			Expect(res.Sources).To(BeEmpty())
			Expect(res.Confidence).To(Equal(0.0))
			Expect(res.Usage).To(BeNil())
			Expect(completer.CallCount()).To(Equal(0))
		})

		It("treats all-below-threshold hits as no results", func() {
			driver.Results = []vector.SearchResult{hit("weak", "Weak", 0.5)}

			res, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Answer).To(Equal(rag.NoResultsAnswer))
			Expect(completer.CallCount()).To(BeZero())
		})

		It("only keeps sources at or above the threshold", func() {
			driver.Results = []vector.SearchResult{
				hit("doc-a", "A", 0.85),
				hit("doc-b", "B", 0.5),
			}

			res, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sources).To(HaveLen(1))
			Expect(res.Sources[0].ID).To(Equal("doc-a"))
			Expect(completer.LastRequest().Messages[0].GetText()).NotTo(ContainSubstring("[Document 2"))
		})

		It("bounds sources by top-K and reports their mean score", func() {
			driver.Results = []vector.SearchResult{
				hit("1", "One", 0.99), hit("2", "Two", 0.9), hit("3", "Three", 0.8),
				hit("4", "Four", 0.75), hit("5", "Five", 0.72), hit("6", "Six", 0.71),
			}

			res, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(len(res.Sources)).To(BeNumerically("<=", 5))

			var sum float64
			for i, s := range res.Sources {
				Expect(s.Score).To(BeNumerically(">=", 0.7))
				if i > 0 {
					Expect(s.Score).To(BeNumerically("<=", res.Sources[i-1].Score))
				}
				sum += s.Score
			}
			Expect(res.Confidence).To(BeNumerically("~", sum/float64(len(res.Sources))*100, 1e-9))
			Expect(res.Confidence).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
		})

		It("caps confidence for perfect matches", func() {
			driver.Results = []vector.SearchResult{hit("exact", "Exact", 1.0)}

			res, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Confidence).To(Equal(rag.MaxConfidence))
		})

		It("propagates retrieval failures without generating", func() {
			driver.SearchErr = errors.New("connection refused")

			res, err := pipeline.Answer(ctx, "question")
			Expect(res).To(BeNil())
			var retrievalErr *rag.RetrievalError
			Expect(errors.As(err, &retrievalErr)).To(BeTrue())
			Expect(completer.CallCount()).To(BeZero())
		})

		It("propagates generation failures instead of degrading", func() {
			driver.Results = []vector.SearchResult{hit("doc1", "Onboarding Guide", 0.85)}
			completer.Err = errors.New("provider unavailable")

			res, err := pipeline.Answer(ctx, "question")
			Expect(res).To(BeNil())
			var genErr *rag.GenerationError
			Expect(errors.As(err, &genErr)).To(BeTrue())
		})

		It("returns identical sources for repeated questions", func() {
			driver.Results = []vector.SearchResult{hit("a", "A", 0.9), hit("b", "B", 0.8)}

			first, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			second, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Sources).To(Equal(first.Sources))
		})
	})

	Describe("state transitions", func() {
		var (
			mu          sync.Mutex
			transitions []rag.State
		)

		BeforeEach(func() {
			transitions = nil
			pipeline = newPipeline(rag.WithStateObserver(func(_ string, _, to rag.State) {
				mu.Lock()
				defer mu.Unlock()
				transitions = append(transitions, to)
			}))
		})

		It("walks the full path for a generated answer", func() {
			driver.Results = []vector.SearchResult{hit("doc1", "Doc", 0.9)}

			_, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(transitions).To(Equal([]rag.State{
				rag.StateRetrieving,
				rag.StateAssembling,
				rag.StateGenerating,
				rag.StateScoringConfidence,
				rag.StateDone,
			}))
		})

		It("stops at no results", func() {
			_, err := pipeline.Answer(ctx, "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(transitions).To(Equal([]rag.State{rag.StateRetrieving, rag.StateNoResults}))
		})

		It("fails from generating", func() {
			driver.Results = []vector.SearchResult{hit("doc1", "Doc", 0.9)}
			completer.Err = errors.New("boom")

			_, err := pipeline.Answer(ctx, "question")
			Expect(err).To(HaveOccurred())
			Expect(transitions).To(HaveLen(4))
			Expect(transitions[3]).To(Equal(rag.StateFailed))
			Expect(transitions[3].String()).To(Equal("failed"))
		})
	})

	Describe("AnswerBatch", func() {
		BeforeEach(func() {
			driver.Results = []vector.SearchResult{hit("doc1", "Doc", 0.9)}
			completer.TextFor = func(req *llm.ChatRequest) string {
				prompt := req.Messages[0].GetText()
				switch {
				case strings.Contains(prompt, "Question: A?"):
					return "answer for A"
				case strings.Contains(prompt, "Question: B?"):
					return "answer for B"
				default:
					return "answer"
				}
			}
		})

		It("keeps input order when a later question finishes first", func() {
			embedder.DelayFor = func(text string) time.Duration {
				if text == "B?" {
					return 100 * time.Millisecond
				}
				return 0
			}

			results, err := pipeline.AnswerBatch(ctx, []string{"A?", "B?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Answer).To(Equal("answer for A"))
			Expect(results[1].Answer).To(Equal("answer for B"))
		})

		It("keeps input order when an earlier question is slower", func() {
			embedder.DelayFor = func(text string) time.Duration {
				if text == "A?" {
					return 100 * time.Millisecond
				}
				return 0
			}

			results, err := pipeline.AnswerBatch(ctx, []string{"A?", "B?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Answer).To(Equal("answer for A"))
			Expect(results[1].Answer).To(Equal("answer for B"))
		})

		It("fails the whole batch when one question fails", func() {
			embedder.FailOn = "B?"

			results, err := pipeline.AnswerBatch(ctx, []string{"A?", "B?"})
			Expect(results).To(BeNil())
			var retrievalErr *rag.RetrievalError
			Expect(errors.As(err, &retrievalErr)).To(BeTrue())
		})

		It("answers many questions concurrently", func() {
			questions := make([]string, rag.MaxBatchSize)
			for i := range questions {
				questions[i] = "question"
			}

			results, err := pipeline.AnswerBatch(ctx, questions)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(rag.MaxBatchSize))
			Expect(completer.CallCount()).To(Equal(rag.MaxBatchSize))
		})
	})
})
