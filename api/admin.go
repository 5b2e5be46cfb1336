package api

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/storage"
	"github.com/papercomputeco/askbase/pkg/utils"
)

const (
	statusHealthy     = "healthy"
	statusDegraded    = "degraded"
	statusOperational = "operational"
	statusDown        = "down"
	statusUnknown     = "not_configured"

	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

// ServiceStatus is the health of one dependency.
type ServiceStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse reports dependency health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Services  map[string]ServiceStatus `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth checks the vector store and the completion provider.
// Any failed check degrades the server and answers 503.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: statusHealthy,
		Services: map[string]ServiceStatus{
			"vectorStore": s.checkVectorStore(ctx),
			"completion":  s.checkCompletion(ctx),
		},
		Timestamp: timestamp(),
	}

	for _, svc := range resp.Services {
		if svc.Status == statusDown {
			resp.Status = statusDegraded
		}
	}

	if resp.Status != statusHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) checkVectorStore(ctx context.Context) ServiceStatus {
	if s.config.VectorDriver == nil {
		return ServiceStatus{Status: statusUnknown}
	}
	if err := s.config.VectorDriver.Ping(ctx); err != nil {
		s.logger.Error("vector store health check failed", "error", err)
		return ServiceStatus{Status: statusDown, Error: err.Error()}
	}
	return ServiceStatus{Status: statusOperational}
}

func (s *Server) checkCompletion(ctx context.Context) ServiceStatus {
	if s.config.Completer == nil {
		return ServiceStatus{Status: statusUnknown}
	}

	maxTokens := 5
	_, err := s.config.Completer.Complete(ctx, &llm.ChatRequest{
		Model:     s.config.Model,
		Messages:  []llm.Message{llm.NewTextMessage("user", "test")},
		MaxTokens: &maxTokens,
	})
	if err != nil {
		s.logger.Error("completion health check failed",
			"provider", s.config.Completer.Name(),
			"error", err,
		)
		return ServiceStatus{Status: statusDown, Error: err.Error()}
	}
	return ServiceStatus{Status: statusOperational}
}

// StatsResponse summarizes the running system.
type StatsResponse struct {
	Queries   QueryStats    `json:"queries"`
	Documents DocumentStats `json:"documents"`
	Feedback  FeedbackStats `json:"feedback"`
	System    SystemStats   `json:"system"`
	Timestamp string        `json:"timestamp"`
}

// QueryStats summarizes the query log.
type QueryStats struct {
	Total                 int     `json:"total"`
	Last24Hours           int     `json:"last24Hours,omitempty"`
	NoResults             int     `json:"noResults"`
	Failed                int     `json:"failed"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
	AverageConfidence     float64 `json:"averageConfidence"`
	SuccessRate           float64 `json:"successRate"`
	TotalTokens           int     `json:"totalTokens"`
}

// DocumentStats summarizes the knowledge base.
type DocumentStats struct {
	TotalIndexed int `json:"totalIndexed"`
}

// FeedbackStats summarizes collected feedback.
type FeedbackStats struct {
	TotalFeedback      int                `json:"totalFeedback"`
	AverageRating      float64            `json:"averageRating"`
	HelpfulPercentage  float64            `json:"helpfulPercentage"`
	RatingDistribution map[string]int     `json:"ratingDistribution"`
	RecentComments     []FeedbackResponse `json:"recentComments"`
}

// FeedbackResponse is one stored feedback entry.
type FeedbackResponse struct {
	QuestionID string `json:"questionId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	Helpful    bool   `json:"helpful"`
	CreatedAt  string `json:"createdAt"`
}

// SystemStats describes the server process.
type SystemStats struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
	GoVersion     string  `json:"goVersion"`
	Version       string  `json:"version"`
}

// handleAdminStats reports query, document, feedback and process statistics.
func (s *Server) handleAdminStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	usage, err := s.storer.UsageStats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return s.statsError(c, err)
	}

	feedback, err := s.storer.FeedbackStats(ctx)
	if err != nil {
		return s.statsError(c, err)
	}

	var docs DocumentStats
	if s.config.Ingest != nil {
		st, err := s.config.Ingest.Stats(ctx)
		if err != nil {
			// The query log is still useful without the document count.
			s.logger.Warn("failed to count documents", "error", err)
		} else {
			docs.TotalIndexed = st.Documents
		}
	}

	return c.JSON(StatsResponse{
		Queries:   toQueryStats(usage),
		Documents: docs,
		Feedback:  toFeedbackStats(feedback),
		System: SystemStats{
			UptimeSeconds: time.Since(s.started).Seconds(),
			Goroutines:    runtime.NumGoroutine(),
			GoVersion:     runtime.Version(),
			Version:       utils.Version,
		},
		Timestamp: timestamp(),
	})
}

// handleAdminConfig returns the sanitized server configuration.
func (s *Server) handleAdminConfig(c *fiber.Ctx) error {
	settings := s.config.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	return c.JSON(fiber.Map{
		"settings":  settings,
		"version":   utils.Version,
		"timestamp": timestamp(),
	})
}

// handleClearCache empties the answer cache.
func (s *Server) handleClearCache(c *fiber.Ctx) error {
	if s.config.Cache != nil {
		if err := s.config.Cache.Clear(c.UserContext()); err != nil {
			s.logger.Error("failed to clear answer cache", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
				Error:   "Internal Server Error",
				Message: "failed to clear cache",
			})
		}
	}

	s.logger.Info("answer cache cleared")
	return c.JSON(MessageResponse{
		Message:   "Cache cleared successfully",
		Timestamp: timestamp(),
	})
}

// UsageAnalyticsResponse counts queries in a period alongside all-time
// query log metrics.
type UsageAnalyticsResponse struct {
	Period          Period     `json:"period"`
	QueriesInPeriod int        `json:"queriesInPeriod"`
	AllTime         QueryStats `json:"allTime"`
	Timestamp       string     `json:"timestamp"`
}

// Period is an analytics time range.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleUsageAnalytics summarizes the query log for the last ?days=N days
// (default 30).
func (s *Server) handleUsageAnalytics(c *fiber.Ctx) error {
	days := defaultAnalyticsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAnalyticsDays {
			return badRequest(c, "days must be an integer between 1 and 365")
		}
		days = n
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)

	usage, err := s.storer.UsageStats(c.UserContext(), start)
	if err != nil {
		return s.statsError(c, err)
	}

	allTime := toQueryStats(usage)
	allTime.Last24Hours = 0

	return c.JSON(UsageAnalyticsResponse{
		Period: Period{
			Start: start.UTC().Format(time.RFC3339),
			End:   end.UTC().Format(time.RFC3339),
		},
		QueriesInPeriod: usage.QueriesSince,
		AllTime:         allTime,
		Timestamp:       timestamp(),
	})
}

// handleFeedbackAnalytics summarizes collected feedback.
func (s *Server) handleFeedbackAnalytics(c *fiber.Ctx) error {
	feedback, err := s.storer.FeedbackStats(c.UserContext())
	if err != nil {
		return s.statsError(c, err)
	}

	return c.JSON(fiber.Map{
		"summary":   toFeedbackStats(feedback),
		"timestamp": timestamp(),
	})
}

func (s *Server) statsError(c *fiber.Ctx, err error) error {
	s.logger.Error("failed to read statistics", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "Internal Server Error",
		Message: "failed to read statistics",
	})
}

func toQueryStats(u *storage.UsageStats) QueryStats {
	return QueryStats{
		Total:                 u.TotalQueries,
		Last24Hours:           u.QueriesSince,
		NoResults:             u.NoResultQueries,
		Failed:                u.FailedQueries,
		AverageResponseTimeMs: round2(u.AvgProcessingTimeMs),
		AverageConfidence:     round2(u.AvgConfidence),
		SuccessRate:           round2(u.SuccessRate()),
		TotalTokens:           u.TotalTokens,
	}
}

func toFeedbackStats(f *storage.FeedbackStats) FeedbackStats {
	dist := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	for rating, n := range f.RatingDistribution {
		dist[strconv.Itoa(rating)] = n
	}

	comments := make([]FeedbackResponse, 0, len(f.RecentComments))
	for _, fb := range f.RecentComments {
		comments = append(comments, FeedbackResponse{
			QuestionID: fb.QuestionID,
			Rating:     fb.Rating,
			Comment:    fb.Comment,
			Helpful:    fb.Helpful,
			CreatedAt:  fb.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return FeedbackStats{
		TotalFeedback:      f.TotalFeedback,
		AverageRating:      round2(f.AverageRating),
		HelpfulPercentage:  round2(f.HelpfulPercentage()),
		RatingDistribution: dist,
		RecentComments:     comments,
	}
}
