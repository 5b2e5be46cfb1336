package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/askbase/pkg/rag"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a question of the knowledge base. Returns an answer grounded in the retrieved documents, the cited sources and a confidence score from 0 to 95."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the knowledge base (3 to 1000 characters)"`
}

// AskSource is a document cited by an answer.
type AskSource struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// AskOutput represents the structured output of the ask tool.
type AskOutput struct {
	QuestionID string      `json:"questionId,omitempty"`
	Answer     string      `json:"answer"`
	Sources    []AskSource `json:"sources"`
	Confidence float64     `json:"confidence"`
}

// handleAsk answers a question through the configured Answerer.
func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if err := rag.ValidateQuestion(input.Question); err != nil {
		return errorResult(err.Error()), AskOutput{}, nil
	}

	result, err := s.config.Answerer.Answer(ctx, input.Question)
	if err != nil {
		return s.failureResult("MCP ask failed", err), AskOutput{}, nil
	}

	output := buildAskOutput(result)

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return s.failureResult("failed to marshal ask output", err), AskOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func buildAskOutput(result *rag.QueryResult) AskOutput {
	sources := make([]AskSource, 0, len(result.Sources))
	for _, src := range result.Sources {
		sources = append(sources, AskSource{ID: src.ID, Title: src.Title, Score: src.Score})
	}
	return AskOutput{
		QuestionID: result.QuestionID,
		Answer:     result.Answer,
		Sources:    sources,
		Confidence: result.Confidence,
	}
}
