// Package v1 exposes the assistant over HTTP: document management, streaming
// question answering, and operational endpoints.
package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scholarbot/src/core/rag"
	"scholarbot/src/infrastructure/job"
)

// HealthChecker reports whether the model backend is reachable.
type HealthChecker interface {
	Models(ctx context.Context) ([]string, error)
}

type Handler struct {
	ingestor *rag.Ingestor
	answerer *rag.Answerer
	history  rag.HistoryStore
	store    rag.VectorStore
	maint    *rag.Maintenance
	health   HealthChecker
	jobs     *job.JobService
}

func NewHandler(
	ingestor *rag.Ingestor,
	answerer *rag.Answerer,
	history rag.HistoryStore,
	store rag.VectorStore,
	maint *rag.Maintenance,
	health HealthChecker,
	jobs *job.JobService,
) *Handler {
	return &Handler{
		ingestor: ingestor,
		answerer: answerer,
		history:  history,
		store:    store,
		maint:    maint,
		health:   health,
		jobs:     jobs,
	}
}

// RegisterRoutes registers all v1 API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	// Document routes
	v1.GET("/documents", h.ListDocuments)
	v1.POST("/documents", h.UploadDocument)
	v1.POST("/documents/folder", h.IngestFolder)
	v1.DELETE("/documents/:id", h.DeleteDocument)

	// Chat routes
	v1.POST("/ask", h.Ask)
	v1.GET("/sessions", h.ListSessions)
	v1.GET("/sessions/:id/history", h.GetHistory)
	v1.DELETE("/sessions/:id", h.DeleteSession)

	// Job routes
	v1.GET("/jobs/:id", h.GetJob)

	// System routes
	v1.GET("/health", h.CheckHealth)
	v1.GET("/stats", h.GetStats)
}

// Common error response structure
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func sendError(c *gin.Context, status int, err error) {
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, rag.ErrDocumentNotFound):
		code = "NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, rag.ErrUnsupportedFormat):
		code = "UNSUPPORTED_FORMAT"
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, rag.ErrCorruptDocument):
		code = "CORRUPT_DOCUMENT"
		status = http.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrInvalidConfig):
		code = "INVALID_REQUEST"
		status = http.StatusBadRequest
	case errors.Is(err, rag.ErrSessionBusy):
		code = "SESSION_BUSY"
		status = http.StatusConflict
	case errors.Is(err, rag.ErrModelUnavailable), errors.Is(err, rag.ErrStoreUnavailable):
		code = "BACKEND_UNAVAILABLE"
		status = http.StatusServiceUnavailable
	case errors.Is(err, rag.ErrCapabilityTimeout):
		code = "BACKEND_TIMEOUT"
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}
