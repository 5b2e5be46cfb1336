package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/utils"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the knowledge base for documents relevant to a query. Returns matching documents with relevance scores and a content preview, without generating an answer."

	previewLength = 300
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant documents"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if err := rag.ValidateQuestion(input.Query); err != nil {
		return errorResult(err.Error()), SearchOutput{}, nil
	}

	s.config.Logger.Debug("MCP search request", "query", input.Query)

	results, err := s.config.Retriever.Retrieve(ctx, input.Query)
	if err != nil {
		return s.failureResult("MCP search failed", err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: make([]SearchResult, 0, len(results)),
		Count:   len(results),
	}
	for _, r := range results {
		output.Results = append(output.Results, buildSearchResult(r))
	}

	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return s.failureResult("failed to marshal search output", err), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

// buildSearchResult converts a retrieval hit into a SearchResult.
func buildSearchResult(r rag.SearchResult) SearchResult {
	return SearchResult{
		ID:      r.ID,
		Title:   r.Title,
		Score:   r.Score,
		Preview: utils.Truncate(r.Content, previewLength),
	}
}
