package memory

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/rag"
)

var _ = Describe("Cache", func() {
	var (
		c   *Cache
		ctx context.Context
		now time.Time
	)

	answer := func(text string) *rag.QueryResult {
		return &rag.QueryResult{Answer: text, Sources: []rag.SearchResult{}}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Unix(1735689600, 0)
		c = New(2, time.Minute)
		c.now = func() time.Time { return now }
	})

	It("misses for unknown questions", func() {
		_, ok, err := c.Get(ctx, "unknown")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns cached answers for equivalent questions", func() {
		Expect(c.Set(ctx, "What is the refund policy?", answer("14 days"))).To(Succeed())

		got, ok, err := c.Get(ctx, "  what is the REFUND policy? ")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(got.Answer).To(Equal("14 days"))
	})

	It("expires entries after the TTL", func() {
		Expect(c.Set(ctx, "q", answer("a"))).To(Succeed())
		now = now.Add(2 * time.Minute)

		_, ok, _ := c.Get(ctx, "q")
		Expect(ok).To(BeFalse())
		Expect(c.Len()).To(BeZero())
	})

	It("evicts the least recently used entry when full", func() {
		Expect(c.Set(ctx, "first", answer("1"))).To(Succeed())
		Expect(c.Set(ctx, "second", answer("2"))).To(Succeed())

		_, ok, _ := c.Get(ctx, "first")
		Expect(ok).To(BeTrue())

		Expect(c.Set(ctx, "third", answer("3"))).To(Succeed())
		Expect(c.Len()).To(Equal(2))

		_, ok, _ = c.Get(ctx, "second")
		Expect(ok).To(BeFalse())
		_, ok, _ = c.Get(ctx, "first")
		Expect(ok).To(BeTrue())
	})

	It("replaces answers for the same question", func() {
		Expect(c.Set(ctx, "q", answer("old"))).To(Succeed())
		Expect(c.Set(ctx, "q", answer("new"))).To(Succeed())

		got, _, _ := c.Get(ctx, "q")
		Expect(got.Answer).To(Equal("new"))
		Expect(c.Len()).To(Equal(1))
	})

	It("clears everything", func() {
		Expect(c.Set(ctx, "q", answer("a"))).To(Succeed())
		Expect(c.Clear(ctx)).To(Succeed())
		Expect(c.Len()).To(BeZero())
	})

	It("applies defaults for non-positive settings", func() {
		d := New(0, 0)
		Expect(d.maxSize).To(Equal(DefaultMaxSize))
		Expect(d.ttl).To(Equal(DefaultTTL))
	})
})
