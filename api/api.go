package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/askbase/api/mcp"
	"github.com/papercomputeco/askbase/pkg/eventstream/nop"
	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/storage"
)

// Server is the API server for the askbase knowledge assistant.
type Server struct {
	config  Config
	storer  storage.Driver
	answers *answerService
	logger  *slog.Logger
	app     *fiber.App
	started time.Time
}

// NewServer creates a new API server.
// The storer holds the query log and feedback and is shared with the caller,
// which owns closing it.
func NewServer(config Config, storer storage.Driver, logger *slog.Logger) (*Server, error) {
	if config.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if config.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	config.applyDefaults()
	if config.Publisher == nil {
		config.Publisher = nop.NewPublisher()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	s := &Server{
		config: config,
		storer: storer,
		answers: &answerService{
			pipeline:  config.Pipeline,
			cache:     config.Cache,
			storer:    storer,
			publisher: config.Publisher,
			source:    config.EventSource,
			logger:    logger,
		},
		logger:  logger,
		app:     app,
		started: time.Now(),
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Answerer:  s.answers,
		Retriever: config.Retriever,
		Noop:      config.DisableMCP,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if config.DisableMCP {
		logger.Info("MCP tools disabled")
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)

	v1 := app.Group("/v1")

	limit := s.rateLimiter()
	query := v1.Group("/query")
	query.Post("/", limit, s.handleQuery)
	query.Post("/batch", limit, s.handleBatchQuery)
	query.Post("/feedback", s.handleFeedback)

	docs := v1.Group("/documents")
	docs.Get("/", s.handleListDocuments)
	docs.Post("/", s.handleUploadDocument)
	docs.Post("/bulk", s.handleBulkUpload)
	docs.Delete("/:id", s.handleDeleteDocument)

	admin := v1.Group("/admin")
	admin.Get("/stats", s.handleAdminStats)
	admin.Get("/config", s.handleAdminConfig)
	admin.Post("/clear-cache", s.handleClearCache)

	analytics := v1.Group("/analytics")
	analytics.Get("/usage", s.handleUsageAnalytics)
	analytics.Get("/feedback", s.handleFeedbackAnalytics)

	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))

	return s, nil
}

// rateLimiter limits query requests per client IP over a sliding window.
func (s *Server) rateLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        s.config.RateLimitMax,
		Expiration: s.config.RateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			s.logger.Warn("rate limit exceeded", "ip", c.IP(), "path", c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "Rate limit exceeded. Please try again later.",
			})
		},
		LimiterMiddleware: limiter.SlidingWindow{},
	})
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
