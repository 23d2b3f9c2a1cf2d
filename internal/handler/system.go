package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// ToolLister reports the names of the loaded tools
type ToolLister interface {
	ToolNames(ctx context.Context) ([]string, error)
}

// SystemHandler serves health, version and toolset endpoints
type SystemHandler struct {
	build BuildInfo
	tools ToolLister
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(build BuildInfo, tools ToolLister) *SystemHandler {
	return &SystemHandler{build: build, tools: tools}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"service":    "hdbsearch",
		"version":    h.build.Version,
		"build_time": h.build.BuildTime,
		"git_commit": h.build.GitCommit,
	})
}

// Version handles GET /version
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}

// Tools handles GET /api/v1/tools. The toolset is loaded on first call.
func (h *SystemHandler) Tools(c *gin.Context) {
	names, err := h.tools.ToolNames(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load toolset: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": names})
}
