package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/server/dto"
)

// GraphHandler serves the graph build and inspection endpoints.
type GraphHandler struct {
	client docgraph.DocGraph
	logger *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(client docgraph.DocGraph, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{client: client, logger: logger}
}

// Relationships handles GET /api/v1/documents/:id/relationships
func (h *GraphHandler) Relationships(c *gin.Context) {
	rels, err := h.client.Relationships(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rels)
}

// Stats handles GET /api/v1/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Stats())
}

// Build handles POST /api/v1/graph/build. The configured corpus is rebuilt,
// optionally from a snapshot, and optionally re-indexed afterwards.
func (h *GraphHandler) Build(c *gin.Context) {
	var req dto.BuildRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	build := h.client.BuildGraph
	if req.UseSnapshot {
		build = h.client.LoadGraph
	}
	g, err := build(ctx, "")
	if err != nil {
		h.logger.Error("Graph build failed", "error", err)
		abortWithError(c, err)
		return
	}

	resp := dto.BuildResponse{
		Documents:     g.Len(),
		Relationships: g.EdgeCount(),
	}
	if req.Index {
		result, err := runIndex(ctx, h.client)
		if err != nil {
			h.logger.Error("Index after build failed", "error", err)
			abortWithError(c, err)
			return
		}
		resp.Indexed = true
		resp.RunID = result.RunID
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: resp})
}
