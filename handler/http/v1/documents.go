package v1

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListDocuments godoc
// @Summary List ingested documents
// @Tags documents
// @Produce json
// @Success 200 {array} rag.Document
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.ingestor.ListDocuments(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, docs)
}

// UploadDocument godoc
// @Summary Ingest a single uploaded document
// @Tags documents
// @Accept multipart/form-data
// @Param file formData file true "Document file"
// @Produce json
// @Success 201 {object} rag.IngestResult
// @Failure 400 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents [post]
func (h *Handler) UploadDocument(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("file upload required: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		sendError(c, http.StatusInternalServerError, fmt.Errorf("failed to read file: %w", err))
		return
	}

	result, err := h.ingestor.IngestFile(c.Request.Context(), header.Filename, data)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	sendJSON(c, status, result)
}

type ingestFolderRequest struct {
	Path string `json:"path" binding:"required"`
}

// IngestFolder godoc
// @Summary Ingest every supported file under a server-side folder
// @Tags documents
// @Accept json
// @Param body body ingestFolderRequest true "Folder parameters"
// @Produce json
// @Success 200 {object} rag.BatchReport
// @Success 202 {object} job.Job
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents/folder [post]
func (h *Handler) IngestFolder(c *gin.Context) {
	var req ingestFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	// With a queue wired in the folder runs in the background; otherwise it
	// runs inline and the report comes back in the response.
	if h.jobs != nil {
		j, err := h.jobs.EnqueueIngestFolder(c.Request.Context(), req.Path)
		if err != nil {
			sendError(c, http.StatusInternalServerError, err)
			return
		}
		sendJSON(c, http.StatusAccepted, j)
		return
	}

	report, err := h.ingestor.IngestFolder(c.Request.Context(), req.Path)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, report)
}

// DeleteDocument godoc
// @Summary Remove a document and its index entries
// @Tags documents
// @Param id path string true "Document ID"
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /documents/{id} [delete]
func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.ingestor.DeleteDocument(c.Request.Context(), id); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetJob godoc
// @Summary Get the status of a background ingestion job
// @Tags jobs
// @Param id path int true "Job ID"
// @Produce json
// @Success 200 {object} job.Job
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	if h.jobs == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("background jobs are not enabled"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid job id: %w", err))
		return
	}

	j, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if j == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("job not found: %d", id))
		return
	}
	sendJSON(c, http.StatusOK, j)
}
