package sqldriver

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	queriesTable  = "queries"
	feedbackTable = "feedback"
)

var (
	queriesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "question", Type: field.TypeString, Size: 2147483647},
		{Name: "answer", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "source_ids", Type: field.TypeString, Size: 2147483647, Default: "[]"},
		{Name: "confidence", Type: field.TypeFloat64, Default: 0},
		{Name: "processing_time_ms", Type: field.TypeInt64, Default: 0},
		{Name: "total_tokens", Type: field.TypeInt, Default: 0},
		{Name: "outcome", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeInt64},
	}

	// QueriesTable holds one row per answered (or failed) question.
	QueriesTable = &schema.Table{
		Name:       queriesTable,
		Columns:    queriesColumns,
		PrimaryKey: []*schema.Column{queriesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "query_created_at", Columns: []*schema.Column{queriesColumns[8]}},
		},
	}

	feedbackColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "question_id", Type: field.TypeString},
		{Name: "rating", Type: field.TypeInt},
		{Name: "comment", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "helpful", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeInt64},
	}

	// FeedbackTable holds ratings of logged queries.
	FeedbackTable = &schema.Table{
		Name:       feedbackTable,
		Columns:    feedbackColumns,
		PrimaryKey: []*schema.Column{feedbackColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "feedback_queries_feedback",
				Columns:    []*schema.Column{feedbackColumns[1]},
				RefColumns: []*schema.Column{queriesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "feedback_created_at", Columns: []*schema.Column{feedbackColumns[5]}},
		},
	}

	// Tables is the full schema, in creation order.
	Tables = []*schema.Table{
		QueriesTable,
		FeedbackTable,
	}
)

func init() {
	FeedbackTable.ForeignKeys[0].RefTable = QueriesTable
}
