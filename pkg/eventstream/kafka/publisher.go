// Package kafka publishes query events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/askbase/pkg/eventstream"
)

// DefaultTopic receives query events when no topic is configured.
const DefaultTopic = "askbase.queries"

// Config configures the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 5s.
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes QueryAnsweredEvents as JSON messages keyed by question ID,
// so all events for one question land on the same partition.
type Publisher struct {
	writer       messageWriter
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPublisher creates a Kafka publisher. Connections are opened lazily on
// the first publish.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka event publisher initialized", "brokers", c.Brokers, "topic", topic)
	return newPublisher(w, c.WriteTimeout, logger), nil
}

func newPublisher(w messageWriter, writeTimeout time.Duration, logger *slog.Logger) *Publisher {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Publisher{
		writer:       w,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// PublishQuery writes the event to the topic.
func (p *Publisher) PublishQuery(ctx context.Context, event *eventstream.QueryAnsweredEvent) error {
	if event == nil {
		return eventstream.ErrNilQueryEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding query event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.Query.QuestionID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: fmt.Appendf(nil, "%d", event.SchemaVersion)},
		},
		Time: event.EmittedAt,
	})
	if err != nil {
		return fmt.Errorf("publishing query event %s: %w", event.EventID, err)
	}

	p.logger.Debug("published query event",
		"event_id", event.EventID,
		"question_id", event.Query.QuestionID,
	)
	return nil
}

// Close flushes pending writes and closes broker connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
