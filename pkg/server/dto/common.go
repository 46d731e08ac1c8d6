package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrQuestionTooLong = errors.New("question exceeds maximum length (4096)")
	ErrInvalidLimit    = errors.New("k must be between 1 and 100")
	ErrInvalidSample   = errors.New("sample must be between 1 and 1000")
)

// Field limits applied to request bodies.
const (
	MaxQuestionLength = 4096
	MaxSearchK        = 100
	DefaultSearchK    = 5
	MaxVerifySample   = 1000
)

// QueryRequest asks a question over the indexed corpus.
type QueryRequest struct {
	Question       string `json:"question" binding:"required"`
	IncludeContext bool   `json:"include_context"`
}

// Validate performs validation on QueryRequest
func (r *QueryRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(r.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	return nil
}

// SearchRequest runs a plain vector search.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// Validate performs validation on SearchRequest and fills in the default k.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuestion
	}
	if len(r.Query) > MaxQuestionLength {
		return ErrQuestionTooLong
	}
	if r.K == 0 {
		r.K = DefaultSearchK
	}
	if r.K < 0 || r.K > MaxSearchK {
		return ErrInvalidLimit
	}
	return nil
}

// BuildRequest rebuilds the graph of the configured corpus.
type BuildRequest struct {
	UseSnapshot bool `json:"use_snapshot"`
	Index       bool `json:"index"`
}

// BuildResponse reports the outcome of a rebuild.
type BuildResponse struct {
	Documents     int    `json:"documents"`
	Relationships int    `json:"relationships"`
	Indexed       bool   `json:"indexed"`
	RunID         string `json:"run_id,omitempty"`
}

// Result represents a generic API result
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
