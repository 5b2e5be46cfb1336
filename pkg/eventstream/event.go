package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeQueryAnswered is emitted after the pipeline handles a question.
	EventTypeQueryAnswered = "askbase.query.answered"
)

// QueryAnsweredEvent is a transport-neutral event payload for a handled question.
type QueryAnsweredEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Query         QueryMeta   `json:"query"`
}

// EventSource identifies the service and models that produced the answer.
type EventSource struct {
	Service   string `json:"service"`
	Retriever string `json:"retriever"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
}

// QueryMeta captures the outcome of one question.
type QueryMeta struct {
	QuestionID       string   `json:"question_id"`
	Question         string   `json:"question"`
	Outcome          string   `json:"outcome"`
	SourceIDs        []string `json:"source_ids"`
	Confidence       float64  `json:"confidence"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	TotalTokens      int      `json:"total_tokens,omitempty"`
}

// NewQueryAnsweredEvent stamps a new event with an ID and emission time.
func NewQueryAnsweredEvent(source EventSource, query QueryMeta) *QueryAnsweredEvent {
	if query.SourceIDs == nil {
		query.SourceIDs = []string{}
	}
	return &QueryAnsweredEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeQueryAnswered,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Query:         query,
	}
}
