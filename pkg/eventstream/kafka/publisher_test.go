package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/askbase/pkg/eventstream"
	"github.com/papercomputeco/askbase/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer *fakeWriter
		pub    *Publisher
		event  *eventstream.QueryAnsweredEvent
	)

	BeforeEach(func() {
		writer = &fakeWriter{}
		pub = newPublisher(writer, 0, logger.Nop())
		event = eventstream.NewQueryAnsweredEvent(
			eventstream.EventSource{Service: "askbase", Retriever: "vector"},
			eventstream.QueryMeta{QuestionID: "q-1", Question: "What is the refund policy?", Outcome: "answered"},
		)
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer for the default topic", func() {
		p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		w, ok := p.writer.(*kafkago.Writer)
		Expect(ok).To(BeTrue())
		Expect(w.Topic).To(Equal(DefaultTopic))
		Expect(p.Close()).To(Succeed())
	})

	It("writes the event as JSON keyed by question ID", func() {
		Expect(pub.PublishQuery(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("q-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeQueryAnswered)}))

		var decoded eventstream.QueryAnsweredEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Query.Question).To(Equal("What is the refund policy?"))
	})

	It("rejects nil events", func() {
		Expect(pub.PublishQuery(context.Background(), nil)).To(MatchError(eventstream.ErrNilQueryEvent))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker unavailable")
		err := pub.PublishQuery(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
