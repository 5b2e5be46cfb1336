// Package mcp provides an MCP (Model Context Protocol) server exposing the
// knowledge base to MCP clients.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/utils"
)

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, question string) (*rag.QueryResult, error)
}

type Config struct {
	// Answerer backs the ask tool.
	Answerer Answerer

	// Retriever backs the search tool.
	Retriever rag.Retriever

	// Noop serves an MCP server with no tools.
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the ask and search tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "askbase",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		s.handler = newHandler(mcpServer)
		return s, nil
	}

	if c.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if c.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        askToolName,
		Description: askDescription,
	}, s.handleAsk)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	s.mcpServer = mcpServer
	s.handler = newHandler(mcpServer)

	return s, nil
}

// newHandler creates a streamable HTTP net/http handler for stateless operations.
func newHandler(server *mcp.Server) *mcp.StreamableHTTPHandler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return server
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// failureResult logs err and reports a generic message to the client.
func (s *Server) failureResult(msg string, err error) *mcp.CallToolResult {
	s.config.Logger.Error(msg, "error", err)

	text := "an unexpected error occurred"
	var (
		rerr *rag.RetrievalError
		gerr *rag.GenerationError
	)
	switch {
	case errors.Is(err, rag.ErrTimeout):
		text = "the request timed out"
	case errors.As(err, &rerr):
		text = "failed to search knowledge base"
	case errors.As(err, &gerr):
		text = "failed to generate answer"
	}
	return errorResult(text)
}

// errorResult is a tool result reporting a failure to the client.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
