package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xxxsen/docask/internal/pkg/response"
	"github.com/xxxsen/docask/internal/service"
)

type AskHandler struct {
	search *service.SearchService
}

func NewAskHandler(search *service.SearchService) *AskHandler {
	return &AskHandler{search: search}
}

type askRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Reformulate    *bool  `json:"reformulate"`
}

func (r *askRequest) normalize() (bool, string) {
	reformulate := true
	if r.Reformulate != nil {
		reformulate = *r.Reformulate
	}
	conversationID := r.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	return reformulate, conversationID
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if req.Question == "" {
		response.Error(c, http.StatusBadRequest, "invalid", "question required")
		return
	}
	reformulate, conversationID := req.normalize()
	result, err := h.search.AskQuestion(c.Request.Context(), conversationID, req.Question, reformulate)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// AskStreaming writes one JSON object per line: a start frame, append frames
// carrying answer fragments, and an end frame with usage and citations. A
// mid-stream failure ends the body early; the client detects it by the
// missing end frame.
func (h *AskHandler) AskStreaming(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if req.Question == "" {
		response.Error(c, http.StatusBadRequest, "invalid", "question required")
		return
	}
	reformulate, conversationID := req.normalize()
	items, err := h.search.AskQuestionStreaming(c.Request.Context(), conversationID, req.Question, reformulate)
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	encoder := json.NewEncoder(c.Writer)
	for item := range items {
		if item.Err != nil {
			return
		}
		if err := encoder.Encode(item.Response); err != nil {
			return
		}
		c.Writer.Flush()
	}
}
