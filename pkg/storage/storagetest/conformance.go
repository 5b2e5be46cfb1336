// Package storagetest holds ginkgo specs shared by every storage.Driver
// implementation.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/storage"
)

// DescribeDriver registers the shared driver specs. newDriver is called
// before each spec; the returned driver is closed after it.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" conformance", func() {
		var (
			driver storage.Driver
			ctx    context.Context
			now    time.Time
		)

		record := func(id, outcome string, ms int64, confidence float64, at time.Time) {
			Expect(driver.RecordQuery(ctx, &storage.QueryRecord{
				ID:               id,
				Question:         "question " + id,
				Answer:           "answer " + id,
				SourceIDs:        []string{"doc-1", "doc-2"},
				Confidence:       confidence,
				ProcessingTimeMs: ms,
				TotalTokens:      100,
				Outcome:          outcome,
				CreatedAt:        at,
			})).To(Succeed())
		}

		BeforeEach(func() {
			ctx = context.Background()
			now = time.Now().Truncate(time.Millisecond)
			driver = newDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		Describe("RecordQuery and GetQuery", func() {
			It("round-trips a query record", func() {
				record("q-1", storage.OutcomeAnswered, 120, 85, now)

				rec, err := driver.GetQuery(ctx, "q-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(rec.Question).To(Equal("question q-1"))
				Expect(rec.Answer).To(Equal("answer q-1"))
				Expect(rec.SourceIDs).To(Equal([]string{"doc-1", "doc-2"}))
				Expect(rec.Confidence).To(BeNumerically("~", 85, 1e-9))
				Expect(rec.ProcessingTimeMs).To(Equal(int64(120)))
				Expect(rec.Outcome).To(Equal(storage.OutcomeAnswered))
				Expect(rec.CreatedAt.UnixMilli()).To(Equal(now.UnixMilli()))
			})

			It("rejects records without an ID", func() {
				Expect(driver.RecordQuery(ctx, &storage.QueryRecord{Question: "q"})).NotTo(Succeed())
			})

			It("returns NotFoundError for unknown IDs", func() {
				_, err := driver.GetQuery(ctx, "missing")
				var nf storage.NotFoundError
				Expect(errors.As(err, &nf)).To(BeTrue())
				Expect(nf.ID).To(Equal("missing"))
			})
		})

		Describe("feedback", func() {
			BeforeEach(func() {
				record("q-1", storage.OutcomeAnswered, 100, 80, now)
			})

			It("rejects feedback for unknown questions", func() {
				err := driver.SaveFeedback(ctx, &storage.Feedback{QuestionID: "missing", Rating: 5})
				var nf storage.NotFoundError
				Expect(errors.As(err, &nf)).To(BeTrue())
			})

			It("lists feedback newest first", func() {
				Expect(driver.SaveFeedback(ctx, &storage.Feedback{
					QuestionID: "q-1", Rating: 2, Helpful: false, CreatedAt: now.Add(-time.Minute),
				})).To(Succeed())
				Expect(driver.SaveFeedback(ctx, &storage.Feedback{
					QuestionID: "q-1", Rating: 5, Comment: "great", Helpful: true, CreatedAt: now,
				})).To(Succeed())

				list, err := driver.ListFeedback(ctx, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
				Expect(list[0].Rating).To(Equal(5))
				Expect(list[0].Comment).To(Equal("great"))
				Expect(list[0].Helpful).To(BeTrue())
				Expect(list[1].Rating).To(Equal(2))

				limited, err := driver.ListFeedback(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(limited).To(HaveLen(1))
			})

			It("summarizes ratings", func() {
				for i, rating := range []int{5, 4, 4, 1} {
					Expect(driver.SaveFeedback(ctx, &storage.Feedback{
						QuestionID: "q-1",
						Rating:     rating,
						Helpful:    rating >= 4,
						Comment:    map[bool]string{true: "comment", false: ""}[i%2 == 0],
						CreatedAt:  now.Add(time.Duration(i) * time.Second),
					})).To(Succeed())
				}

				stats, err := driver.FeedbackStats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.TotalFeedback).To(Equal(4))
				Expect(stats.AverageRating).To(BeNumerically("~", 3.5, 1e-9))
				Expect(stats.HelpfulCount).To(Equal(3))
				Expect(stats.HelpfulPercentage()).To(BeNumerically("~", 75, 1e-9))
				Expect(stats.RatingDistribution).To(Equal(map[int]int{1: 1, 2: 0, 3: 0, 4: 2, 5: 1}))
				Expect(stats.RecentComments).To(HaveLen(2))
				Expect(stats.RecentComments[0].Rating).To(Equal(4))
			})

			It("reports empty feedback stats", func() {
				stats, err := driver.FeedbackStats(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.TotalFeedback).To(BeZero())
				Expect(stats.AverageRating).To(BeZero())
				Expect(stats.HelpfulPercentage()).To(BeZero())
				Expect(stats.RecentComments).To(BeEmpty())
			})
		})

		Describe("UsageStats", func() {
			It("summarizes the query log", func() {
				record("old", storage.OutcomeAnswered, 100, 90, now.Add(-48*time.Hour))
				record("recent", storage.OutcomeNoResults, 200, 0, now.Add(-time.Hour))
				record("failed", storage.OutcomeFailed, 300, 0, now)

				stats, err := driver.UsageStats(ctx, now.Add(-24*time.Hour))
				Expect(err).NotTo(HaveOccurred())
				Expect(stats.TotalQueries).To(Equal(3))
				Expect(stats.QueriesSince).To(Equal(2))
				Expect(stats.NoResultQueries).To(Equal(1))
				Expect(stats.FailedQueries).To(Equal(1))
				Expect(stats.AvgProcessingTimeMs).To(BeNumerically("~", 200, 1e-9))
				Expect(stats.AvgConfidence).To(BeNumerically("~", 30, 1e-9))
				Expect(stats.TotalTokens).To(Equal(300))
				Expect(stats.SuccessRate()).To(BeNumerically("~", 2.0/3.0, 1e-9))
			})

			It("is all zeros for an empty log", func() {
				stats, err := driver.UsageStats(ctx, now)
				Expect(err).NotTo(HaveOccurred())
				Expect(*stats).To(Equal(storage.UsageStats{}))
				Expect(stats.SuccessRate()).To(BeZero())
			})
		})
	})
}
