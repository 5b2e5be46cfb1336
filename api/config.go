// Package api provides the HTTP API server for asking questions of the
// knowledge base and managing its documents.
package api

import (
	"time"

	"github.com/papercomputeco/askbase/pkg/cache"
	"github.com/papercomputeco/askbase/pkg/eventstream"
	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/ingest/worker"
	"github.com/papercomputeco/askbase/pkg/llm/provider"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/vector"
)

const (
	defaultRateLimitMax    = 100
	defaultRateLimitWindow = time.Minute
	defaultQueryTimeout    = 60 * time.Second
	healthCheckTimeout     = 10 * time.Second
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// RateLimitMax is the number of query requests allowed per client IP
	// within RateLimitWindow.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// QueryTimeout bounds a single query or batch request.
	QueryTimeout time.Duration

	// Pipeline answers questions.
	Pipeline *rag.Pipeline

	// Retriever backs the MCP search tool.
	Retriever rag.Retriever

	// DisableMCP serves /mcp without the ask and search tools.
	DisableMCP bool

	// Completer and Model are checked by the health check.
	Completer provider.Completer
	Model     string

	// VectorDriver is checked by the health check.
	VectorDriver vector.Driver

	// Ingest manages knowledge base documents. Document routes answer 503
	// when it is nil.
	Ingest *ingest.Service

	// IngestPool indexes documents uploaded with ?async=true. Optional.
	IngestPool *worker.Pool

	// Cache holds recent answers. Optional.
	Cache cache.Cache

	// Publisher receives an event for every handled question. Optional.
	Publisher eventstream.Publisher

	// EventSource identifies this server in published events.
	EventSource eventstream.EventSource

	// Settings is the sanitized configuration served by /v1/admin/config.
	Settings map[string]string
}

func (c *Config) applyDefaults() {
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = defaultRateLimitMax
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = defaultRateLimitWindow
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
}
