package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/docgraph"
	"github.com/soundprediction/docgraph/pkg/server/dto"
	"github.com/soundprediction/docgraph/pkg/types"
)

// QueryHandler answers questions and runs diagnostic searches.
type QueryHandler struct {
	client docgraph.Querier
	logger *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(client docgraph.Querier, logger *slog.Logger) *QueryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryHandler{client: client, logger: logger}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.client.Query(c.Request.Context(), req.Question, req.IncludeContext)
	if err != nil {
		h.logger.Error("Query failed", "error", err)
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles POST /api/v1/search
func (h *QueryHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	docs, err := h.client.TestSearch(c.Request.Context(), req.Query, req.K)
	if err != nil {
		h.logger.Error("Search failed", "error", err)
		abortWithError(c, err)
		return
	}
	if docs == nil {
		docs = []types.DocumentSummary{}
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: docs})
}
