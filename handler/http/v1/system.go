package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type healthStatus struct {
	Status string   `json:"status"`
	Models []string `json:"models,omitempty"`
	Error  string   `json:"error,omitempty"`
}

type statsResponse struct {
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
	QueryCount    uint64 `json:"query_count"`
}

// CheckHealth godoc
// @Summary Check model backend availability
// @Tags system
// @Produce json
// @Success 200 {object} healthStatus
// @Failure 503 {object} healthStatus
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	models, err := h.health.Models(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, healthStatus{
			Status: "unavailable",
			Error:  err.Error(),
		})
		return
	}
	sendJSON(c, http.StatusOK, healthStatus{
		Status: "ok",
		Models: models,
	})
}

// GetStats godoc
// @Summary Get corpus and usage statistics
// @Tags system
// @Produce json
// @Success 200 {object} statsResponse
// @Failure 500 {object} ErrorResponse
// @Router /stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	chunks, err := h.store.Count(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	docs, err := h.ingestor.ListDocuments(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, statsResponse{
		DocumentCount: len(docs),
		ChunkCount:    chunks,
		QueryCount:    h.maint.Count(),
	})
}
