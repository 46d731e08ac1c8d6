package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/server/dto"
)

// resultIndexer is implemented by clients that report run details.
type resultIndexer interface {
	IndexWithResult(ctx context.Context) (*docgraph.IndexResult, error)
}

func runIndex(ctx context.Context, idx docgraph.Indexer) (*docgraph.IndexResult, error) {
	if ri, ok := idx.(resultIndexer); ok {
		return ri.IndexWithResult(ctx)
	}
	if err := idx.Index(ctx); err != nil {
		return nil, err
	}
	return &docgraph.IndexResult{}, nil
}

// IndexHandler serves the vector index endpoints.
type IndexHandler struct {
	client docgraph.DocGraph
	logger *slog.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(client docgraph.DocGraph, logger *slog.Logger) *IndexHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexHandler{client: client, logger: logger}
}

// Index handles POST /api/v1/index
func (h *IndexHandler) Index(c *gin.Context) {
	result, err := runIndex(c.Request.Context(), h.client)
	if err != nil {
		h.logger.Error("Index failed", "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: result})
}

// Stats handles GET /api/v1/index/stats
func (h *IndexHandler) Stats(c *gin.Context) {
	stats, err := h.client.IndexStats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Verify handles GET /api/v1/index/verify?sample=N
func (h *IndexHandler) Verify(c *gin.Context) {
	sample := docgraph.DefaultVerifySample
	if raw := c.Query("sample"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > dto.MaxVerifySample {
			badRequest(c, dto.ErrInvalidSample)
			return
		}
		sample = n
	}

	report, err := h.client.VerifyIndex(c.Request.Context(), sample)
	if err != nil {
		abortWithError(c, err)
		return
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, report)
}
