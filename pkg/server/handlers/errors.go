package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/docgraph/pkg/server/dto"
	"github.com/soundprediction/docgraph/pkg/types"
)

// statusFor maps client errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrGraphNotBuilt), errors.Is(err, types.ErrIndexNotReady):
		return http.StatusConflict
	case errors.Is(err, types.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrEmbedding), errors.Is(err, types.ErrLLM), errors.Is(err, types.ErrVectorStore):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	c.AbortWithStatusJSON(code, dto.ErrorResponse{
		Error:   http.StatusText(code),
		Message: err.Error(),
		Code:    code,
	})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid request",
		Message: err.Error(),
		Code:    http.StatusBadRequest,
	})
}
