package qdrant

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/google/uuid"

	"github.com/papercomputeco/askbase/pkg/vector"
)

var _ = Describe("pointID", func() {
	It("is a deterministic UUID per document ID", func() {
		a := pointID("refund-policy-1700000000000")
		b := pointID("refund-policy-1700000000000")
		Expect(a).To(Equal(b))

		_, err := uuid.Parse(a)
		Expect(err).NotTo(HaveOccurred())
	})

	It("differs for different document IDs", func() {
		Expect(pointID("doc-1")).NotTo(Equal(pointID("doc-2")))
	})
})

var _ = Describe("payload conversion", func() {
	It("round-trips document fields and metadata", func() {
		doc := vector.Document{
			ID:      "doc-1",
			Title:   "Refund Policy",
			Content: "Refunds are processed within 14 days.",
			Metadata: map[string]any{
				"category": "billing",
				"tags":     []string{"refund", "policy"},
				"priority": 2,
			},
		}

		payload, err := toPayload(doc)
		Expect(err).NotTo(HaveOccurred())

		got := fromPayload(payload)
		Expect(got.ID).To(Equal("doc-1"))
		Expect(got.Title).To(Equal("Refund Policy"))
		Expect(got.Content).To(Equal("Refunds are processed within 14 days."))
		Expect(got.Metadata).To(HaveKeyWithValue("category", "billing"))
		Expect(got.Metadata).To(HaveKeyWithValue("tags", []any{"refund", "policy"}))
		Expect(got.Metadata).To(HaveKeyWithValue("priority", BeNumerically("==", 2)))
	})

	It("omits metadata when there is none", func() {
		payload, err := toPayload(vector.Document{ID: "doc-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(payload).NotTo(HaveKey(payloadMetadata))
		Expect(fromPayload(payload).Metadata).To(BeNil())
	})
})

var _ = Describe("clientConfig", func() {
	It("defaults to localhost on the gRPC port", func() {
		c, err := clientConfig(Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Host).To(Equal("localhost"))
		Expect(c.Port).To(Equal(DefaultPort))
		Expect(c.UseTLS).To(BeFalse())
	})

	It("enables TLS for https targets and keeps the API key", func() {
		c, err := clientConfig(Config{URL: "https://qdrant.example.com:7334", APIKey: "secret"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Host).To(Equal("qdrant.example.com"))
		Expect(c.Port).To(Equal(7334))
		Expect(c.UseTLS).To(BeTrue())
		Expect(c.APIKey).To(Equal("secret"))
	})

	It("rejects a target without a host", func() {
		_, err := clientConfig(Config{URL: "localhost"})
		Expect(err).To(HaveOccurred())
	})
})
