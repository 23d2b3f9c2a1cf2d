package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

// Querier runs the query pipeline
type Querier interface {
	Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error)
	QueryStream(ctx context.Context, req *model.QueryRequest, callback service.EventCallback) (*model.QueryResponse, error)
}

// QueryHandler handles query-related HTTP requests
type QueryHandler struct {
	pipeline Querier
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(pipeline Querier) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

// bindQuery decodes the request body and rejects requests with nothing to ask
func bindQuery(c *gin.Context) (*model.QueryRequest, bool) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return nil, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: query or messages is required"})
		return nil, false
	}
	return &req, true
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(c *gin.Context) {
	req, ok := bindQuery(c)
	if !ok {
		return
	}

	response, err := h.pipeline.Query(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// QueryStream handles POST /api/v1/query/stream - SSE streaming query
func (h *QueryHandler) QueryStream(c *gin.Context) {
	req, ok := bindQuery(c)
	if !ok {
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	response, err := h.pipeline.QueryStream(c.Request.Context(), req, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	sendSSE(c, "results", response)
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data == nil {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
}
