package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
}

type askEvent struct {
	Token     string      `json:"token,omitempty"`
	Citations interface{} `json:"citations,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Ask godoc
// @Summary Ask a question and stream the grounded answer
// @Tags chat
// @Accept json
// @Param body body askRequest true "Question parameters"
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream of token, citations and done events"
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /ask [post]
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	events, err := h.answerer.Answer(c.Request.Context(), sessionID, req.Question)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("session", askEvent{SessionID: sessionID})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		switch {
		case event.Err != nil:
			c.SSEvent("error", askEvent{Error: event.Err.Error()})
			return false
		case event.Done:
			c.SSEvent("done", askEvent{Citations: event.Citations})
			return false
		default:
			c.SSEvent("token", askEvent{Token: event.Token})
			return true
		}
	})
}

// ListSessions godoc
// @Summary List chat sessions with stored history
// @Tags chat
// @Produce json
// @Success 200 {array} string
// @Failure 500 {object} ErrorResponse
// @Router /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.history.ListSessions(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, sessions)
}

// GetHistory godoc
// @Summary Get the full transcript of a session
// @Tags chat
// @Param id path string true "Session ID"
// @Produce json
// @Success 200 {array} rag.ChatMessage
// @Failure 500 {object} ErrorResponse
// @Router /sessions/{id}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		sendError(c, http.StatusBadRequest, fmt.Errorf("session id is required"))
		return
	}

	history, err := h.history.Load(c.Request.Context(), sessionID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	sendJSON(c, http.StatusOK, history)
}

// DeleteSession godoc
// @Summary Delete a session and its transcript
// @Tags chat
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 500 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.history.DeleteSession(c.Request.Context(), sessionID); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}
