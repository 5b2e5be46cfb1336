package api

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/rag"
	"github.com/papercomputeco/askbase/pkg/storage"
	"github.com/papercomputeco/askbase/pkg/utils"
)

const (
	excerptLength    = 200
	maxCommentLength = 500
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

// BatchQueryRequest is the body of POST /v1/query/batch.
type BatchQueryRequest struct {
	Questions []string `json:"questions"`
}

// FeedbackRequest is the body of POST /v1/query/feedback.
type FeedbackRequest struct {
	QuestionID string `json:"questionId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
	Helpful    *bool  `json:"helpful"`
}

// SourceResponse is a cited document in a query response.
type SourceResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Excerpt        string         `json:"excerpt"`
	RelevanceScore float64        `json:"relevanceScore"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// QueryResponse is the answer to one question.
type QueryResponse struct {
	QuestionID       string           `json:"questionId"`
	Answer           string           `json:"answer"`
	Sources          []SourceResponse `json:"sources"`
	Confidence       float64          `json:"confidence"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	Timestamp        string           `json:"timestamp,omitempty"`
}

// BatchQueryResponse holds index-aligned answers to a batch.
type BatchQueryResponse struct {
	Results   []QueryResponse `json:"results"`
	Timestamp string          `json:"timestamp"`
}

// MessageResponse acknowledges a request.
type MessageResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// handleQuery answers a single question.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := rag.ValidateQuestion(req.Question); err != nil {
		return s.queryError(c, err)
	}

	s.logger.Info("query received",
		"session_id", req.SessionID,
		"question_length", len(req.Question),
	)

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.QueryTimeout)
	defer cancel()

	res, err := s.answers.Answer(ctx, req.Question)
	if err != nil {
		return s.queryError(c, err)
	}

	resp := toQueryResponse(res, true)
	resp.Timestamp = timestamp()
	return c.JSON(resp)
}

// handleBatchQuery answers up to ten questions concurrently.
func (s *Server) handleBatchQuery(c *fiber.Ctx) error {
	var req BatchQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := rag.ValidateBatch(req.Questions); err != nil {
		return s.queryError(c, err)
	}

	s.logger.Info("batch query received", "questions", len(req.Questions))

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.QueryTimeout)
	defer cancel()

	results, err := s.answers.AnswerBatch(ctx, req.Questions)
	if err != nil {
		return s.queryError(c, err)
	}

	resp := BatchQueryResponse{
		Results:   make([]QueryResponse, 0, len(results)),
		Timestamp: timestamp(),
	}
	for _, res := range results {
		resp.Results = append(resp.Results, toQueryResponse(res, false))
	}
	return c.JSON(resp)
}

// handleFeedback stores a rating for a previously answered question.
func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if msg := validateFeedback(&req); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:   "Validation Error",
			Message: msg,
		})
	}

	err := s.storer.SaveFeedback(c.UserContext(), &storage.Feedback{
		QuestionID: req.QuestionID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Helpful:    *req.Helpful,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{
				Error:   "Not Found",
				Message: "unknown questionId",
			})
		}
		s.logger.Error("failed to save feedback", "question_id", req.QuestionID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error:   "Internal Server Error",
			Message: "failed to save feedback",
		})
	}

	s.logger.Info("feedback received",
		"question_id", req.QuestionID,
		"rating", req.Rating,
		"helpful", *req.Helpful,
	)

	return c.JSON(MessageResponse{
		Message:   "Feedback received successfully",
		Timestamp: timestamp(),
	})
}

func validateFeedback(req *FeedbackRequest) string {
	switch {
	case strings.TrimSpace(req.QuestionID) == "":
		return "questionId is required"
	case req.Rating < 1 || req.Rating > 5:
		return "rating must be an integer between 1 and 5"
	case len([]rune(req.Comment)) > maxCommentLength:
		return "comment must be at most 500 characters"
	case req.Helpful == nil:
		return "helpful is required"
	}
	return ""
}

// queryError maps pipeline errors to HTTP responses. Clients get a generic
// message; the full error is logged.
func (s *Server) queryError(c *fiber.Ctx, err error) error {
	var verr *rag.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:   "Validation Error",
			Message: verr.Message,
		})
	}

	s.logger.Error("query failed", "error", err)

	if errors.Is(err, rag.ErrTimeout) {
		return c.Status(fiber.StatusGatewayTimeout).JSON(llm.ErrorResponse{
			Error:   "Gateway Timeout",
			Message: "the request timed out",
		})
	}

	msg := "an unexpected error occurred"
	var (
		rerr *rag.RetrievalError
		gerr *rag.GenerationError
	)
	switch {
	case errors.As(err, &rerr):
		msg = "failed to search knowledge base"
	case errors.As(err, &gerr):
		msg = "failed to generate answer"
	}

	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "Internal Server Error",
		Message: msg,
	})
}

func toQueryResponse(res *rag.QueryResult, withMetadata bool) QueryResponse {
	sources := make([]SourceResponse, 0, len(res.Sources))
	for _, src := range res.Sources {
		sr := SourceResponse{
			ID:             src.ID,
			Title:          src.Title,
			Excerpt:        utils.Truncate(src.Content, excerptLength),
			RelevanceScore: round2(src.Score),
		}
		if withMetadata {
			sr.Metadata = src.Metadata
		}
		sources = append(sources, sr)
	}

	return QueryResponse{
		QuestionID:       res.QuestionID,
		Answer:           res.Answer,
		Sources:          sources,
		Confidence:       round2(res.Confidence),
		ProcessingTimeMs: res.ProcessingTimeMs,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
		Error:   "Bad Request",
		Message: msg,
	})
}
