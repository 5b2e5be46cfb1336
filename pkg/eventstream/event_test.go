package eventstream_test

import (
	"encoding/json"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/askbase/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("stamps new events with schema, type, ID and time", func() {
		event := eventstream.NewQueryAnsweredEvent(
			eventstream.EventSource{Service: "askbase", Retriever: "vector", Provider: "openai", Model: "gpt-4o-mini"},
			eventstream.QueryMeta{QuestionID: "q-1", Question: "How does onboarding work?", Outcome: "answered"},
		)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeQueryAnswered))
		_, err := uuid.Parse(event.EventID)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.Query.SourceIDs).NotTo(BeNil())
	})

	It("marshals with expected top-level keys", func() {
		event := eventstream.NewQueryAnsweredEvent(
			eventstream.EventSource{Service: "askbase", Retriever: "keyword"},
			eventstream.QueryMeta{
				QuestionID:       "q-1",
				Question:         "What is the refund policy?",
				Outcome:          "answered",
				SourceIDs:        []string{"doc-1"},
				Confidence:       85,
				ProcessingTimeMs: 420,
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(payload, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("schema_version"))
		Expect(decoded).To(HaveKey("event_type"))
		Expect(decoded).To(HaveKey("event_id"))
		Expect(decoded).To(HaveKey("emitted_at"))
		Expect(decoded).To(HaveKey("source"))
		Expect(decoded).To(HaveKey("query"))

		query := decoded["query"].(map[string]any)
		Expect(query["question_id"]).To(Equal("q-1"))
		Expect(query["source_ids"]).To(Equal([]any{"doc-1"}))
		Expect(query).NotTo(HaveKey("total_tokens"))
	})
})
