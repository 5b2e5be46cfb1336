package inmemory_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/storage"
	"github.com/papercomputeco/askbase/pkg/storage/inmemory"
	"github.com/papercomputeco/askbase/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("In-memory", func() storage.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("copies records so callers cannot mutate stored state", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		rec := &storage.QueryRecord{ID: "q-1", SourceIDs: []string{"doc-1"}, Outcome: storage.OutcomeAnswered}
		Expect(d.RecordQuery(ctx, rec)).To(Succeed())

		rec.SourceIDs[0] = "mutated"
		got, err := d.GetQuery(ctx, "q-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.SourceIDs).To(Equal([]string{"doc-1"}))
	})

	It("handles concurrent writers", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(d.RecordQuery(ctx, &storage.QueryRecord{
					ID: fmt.Sprintf("q-%d", i), Outcome: storage.OutcomeAnswered,
				})).To(Succeed())
			}()
		}
		wg.Wait()

		stats, err := d.UsageStats(ctx, storage.QueryRecord{}.CreatedAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalQueries).To(Equal(50))
	})
})
