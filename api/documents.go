package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/askbase/pkg/ingest"
	"github.com/papercomputeco/askbase/pkg/ingest/worker"
	"github.com/papercomputeco/askbase/pkg/llm"
	"github.com/papercomputeco/askbase/pkg/rag"
)

// MaxBulkDocuments bounds one bulk upload.
const MaxBulkDocuments = 100

// UploadResponse reports a stored or queued document.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// BulkUploadRequest is the body of POST /v1/documents/bulk.
type BulkUploadRequest struct {
	Documents []ingest.Upload `json:"documents"`
}

// BulkUploadResponse reports every document of a bulk upload.
type BulkUploadResponse struct {
	Results      []ingest.UploadResult `json:"results"`
	SuccessCount int                   `json:"successCount"`
	FailedCount  int                   `json:"failedCount"`
}

// ListDocumentsResponse lists stored documents.
type ListDocumentsResponse struct {
	Documents []ingest.DocumentInfo `json:"documents"`
	Count     int                   `json:"count"`
}

// handleUploadDocument stores one document. With ?async=true the document
// is validated, assigned an ID and indexed in the background.
func (s *Server) handleUploadDocument(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return ingestUnavailable(c)
	}

	var u ingest.Upload
	if err := c.BodyParser(&u); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := ingest.Validate(u); err != nil {
		return s.documentError(c, err)
	}

	if c.QueryBool("async") && s.config.IngestPool != nil {
		id := s.config.Ingest.NewDocumentID(u.Title)
		if !s.config.IngestPool.Enqueue(worker.Job{ID: id, Upload: u}) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
				Error:   "Service Unavailable",
				Message: "indexing queue is full, try again later",
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(UploadResponse{
			DocumentID: id,
			Status:     "queued",
			Message:    "Document queued for indexing",
		})
	}

	id, err := s.config.Ingest.Upload(c.UserContext(), u)
	if err != nil {
		return s.documentError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		DocumentID: id,
		Status:     "indexed",
		Message:    "Document uploaded successfully",
	})
}

// handleBulkUpload stores many documents, reporting each one.
func (s *Server) handleBulkUpload(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return ingestUnavailable(c)
	}

	var req BulkUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	switch {
	case len(req.Documents) == 0:
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:   "Validation Error",
			Message: "at least one document is required",
		})
	case len(req.Documents) > MaxBulkDocuments:
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:   "Validation Error",
			Message: "at most 100 documents are allowed per bulk upload",
		})
	}

	results := s.config.Ingest.UploadMany(c.UserContext(), req.Documents)

	resp := BulkUploadResponse{Results: results}
	for _, r := range results {
		if r.Success {
			resp.SuccessCount++
		} else {
			resp.FailedCount++
		}
	}

	s.logger.Info("bulk upload completed",
		"success_count", resp.SuccessCount,
		"failed_count", resp.FailedCount,
	)

	return c.JSON(resp)
}

// handleListDocuments lists stored documents.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return ingestUnavailable(c)
	}

	docs, err := s.config.Ingest.List(c.UserContext())
	if err != nil {
		return s.documentError(c, err)
	}

	return c.JSON(ListDocumentsResponse{Documents: docs, Count: len(docs)})
}

// handleDeleteDocument removes a document by ID.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if s.config.Ingest == nil {
		return ingestUnavailable(c)
	}

	if err := s.config.Ingest.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.documentError(c, err)
	}

	return c.JSON(MessageResponse{
		Message:   "Document deleted successfully",
		Timestamp: timestamp(),
	})
}

func (s *Server) documentError(c *fiber.Ctx, err error) error {
	var verr *rag.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error:   "Validation Error",
			Message: verr.Message,
		})
	}

	s.logger.Error("document operation failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
		Error:   "Internal Server Error",
		Message: "failed to update knowledge base",
	})
}

func ingestUnavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
		Error:   "Service Unavailable",
		Message: "document management is not configured",
	})
}
